package scraper

import (
	"context"
	"testing"
)

const topURL = siteURL + "/gp/bestsellers/electronics/phones"

const topPage1 = `<html><body>
<div id="gridItemRoot">
  <span class="zg-bdg-text">#1</span>
  <span><div id="B0TOP1"></div></span>
</div>
<div id="gridItemRoot">
  <span class="zg-bdg-text">#2</span>
  <span><div id="B0TOP2"></div></span>
</div>
<a class="a-last" href="#">Siguiente</a>
</body></html>`

const topPage2 = `<html><body>
<div id="gridItemRoot">
  <span class="zg-bdg-text">#31</span>
  <span><div id="B0TOP31"></div></span>
</div>
<a class="a-last a-disabled" href="#">Siguiente</a>
</body></html>`

func TestTopPipelineCollectsRankings(t *testing.T) {
	page2URL := topURL + "?pg=2"
	sess := newFakeSession(map[string]string{
		topURL:   topPage1,
		page2URL: topPage2,
	})
	sess.heights = []int64{1200, 1200}
	sess.onClick = func(s *fakeSession, el *fakeElement) error {
		if class, _ := el.Attribute("class"); class == "a-last" {
			return s.load(page2URL)
		}
		return nil
	}

	pipeline := NewTopPipeline(sess, testLimiter(), topURL, testLogger())
	rankings, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[string]int{"B0TOP1": 1, "B0TOP2": 2, "B0TOP31": 31}
	if len(rankings) != len(want) {
		t.Fatalf("rankings = %v, want %v", rankings, want)
	}
	for id, rank := range want {
		if rankings[id] != rank {
			t.Errorf("rankings[%s] = %d, want %d", id, rankings[id], rank)
		}
	}
}

func TestTopPipelineThrottledPage(t *testing.T) {
	sess := newFakeSession(map[string]string{
		topURL: `<html><body><pre>Request throttled</pre></body></html>`,
	})

	pipeline := NewTopPipeline(sess, testLimiter(), topURL, testLogger())
	rankings, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rankings) != 0 {
		t.Errorf("rankings = %v, want empty on a throttled page", rankings)
	}
}
