package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	cmd.PersistentFlags().String("api-url", "", "Catalog backend base URL")
	cmd.PersistentFlags().String("vendor", "", "Vendor slug used in backend routes")
	cmd.PersistentFlags().String("backend", "", "Browser backend (selenium or chromedp)")
	cmd.PersistentFlags().String("selenium-url", "", "Remote WebDriver hub URL")
	cmd.PersistentFlags().String("chrome-path", "", "Chrome binary path for the chromedp backend")
	cmd.PersistentFlags().String("proxy", "", "HTTP/SOCKS5 proxies for browser sessions (comma-separated, rotated)")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("site-url", "", "Retail site base URL")
	cmd.PersistentFlags().String("timeout", "", "Hard timeout for backend requests")
	cmd.PersistentFlags().Bool("headless", true, "Run browsers headless")
	cmd.PersistentFlags().IntP("workers", "w", 0, "Concurrent browser sessions (default: CPU count)")
	cmd.PersistentFlags().StringSlice("brands", nil, "Override the brand list (skip backend lookup)")
}
