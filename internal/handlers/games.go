// internal/handlers/games.go
package handlers

import (
	"net/http"

	"github.com/mtgbuilder/tabletop/internal/lobby"
)

// ListGamesHandler returns the rooms that can still be joined.
func ListGamesHandler(store *lobby.RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"games": store.OpenRooms(),
		})
	}
}

// PingHandler is the liveness probe.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
