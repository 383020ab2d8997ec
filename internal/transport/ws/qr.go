package ws

import (
	"net/http"

	"github.com/skip2/go-qrcode"
)

// ServeQR writes a PNG QR code of the websocket join URL so phones can scan
// their way into the lobby.
func ServeQR(w http.ResponseWriter, r *http.Request) {
	scheme := "ws"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "wss"
	}
	url := scheme + "://" + r.Host + "/ws"

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
