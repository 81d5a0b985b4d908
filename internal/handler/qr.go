package handler

import (
	"log"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

// HandleQR serves a QR code PNG encoding the join link for a game, so
// a host can get a second player onto the board by pointing a phone
// at the screen.
func (h *Gateway) HandleQR(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("game")
	if code == "" || h.registry.Get(code) == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	joinURL := h.publicURL + "/?join=" + code
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		log.Printf("QR encode failed for %s: %v", code, err)
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
