package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/SherClockHolmes/webpush-go"
)

var (
	vapidPrivateKey string
	vapidPublicKey  string
)

func init() {
	// Check for VAPID keys in env, or generate them
	vapidPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	vapidPublicKey = os.Getenv("VAPID_PUBLIC_KEY")

	if vapidPrivateKey == "" || vapidPublicKey == "" {
		log.Println("VAPID keys not found in environment. Generating new keys...")
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatal("Failed to generate VAPID keys:", err)
		}
		vapidPrivateKey = privateKey
		vapidPublicKey = publicKey
		log.Printf("Generated VAPID Keys:\nVAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n(Add these to your .env file to persist them)", privateKey, publicKey)
	}
}

// GetVAPIDKeyHandler returns the public VAPID key
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"publicKey": vapidPublicKey,
	})
}

// SubscribePushHandler saves a web-push subscription for the caller
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r)

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "Endpoint is required")
		return
	}

	if err := h.Admin.SavePushSubscription(r.Context(), sess.UserID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		log.Printf("Failed to save subscription: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// sendPushToUser mirrors a live notification to the user's saved web-push
// subscriptions. Best-effort: failures are logged and forgotten.
func (h *Handler) sendPushToUser(userID, message string) {
	if h.Admin == nil {
		return
	}

	subs, err := h.Admin.GetPushSubscriptions(context.Background(), userID)
	if err != nil {
		log.Printf("Failed to get subscriptions for %s: %v", userID, err)
		return
	}

	for _, sub := range subs {
		s := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}

		resp, err := webpush.SendNotification([]byte(message), s, &webpush.Options{
			Subscriber:      os.Getenv("VAPID_SUBJECT"),
			VAPIDPublicKey:  vapidPublicKey,
			VAPIDPrivateKey: vapidPrivateKey,
			TTL:             30,
		})
		if err != nil {
			log.Printf("Failed to send push to %s: %v", sub.Endpoint, err)
			continue
		}
		resp.Body.Close()
	}
}
