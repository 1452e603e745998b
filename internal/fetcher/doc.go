// Package fetcher downloads monthly sales datasets from the SRI statistics
// portal. The portal lists files behind a JavaScript-rendered page, so link
// discovery drives a headless Chrome instance via chromedp; the actual file
// downloads go over plain HTTP with rate limiting and atomic writes.
package fetcher
