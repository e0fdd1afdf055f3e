// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// UpstreamTimeout bounds every single call to the osu! API.
const UpstreamTimeout = 10 * time.Second

var HTTPClient = &http.Client{
	Timeout: UpstreamTimeout,
}
