package history

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// NewHandler serves GET /api/sensor-history?limit=N. The limit is clamped
// to [1,1000] with a default of 100; readings come back oldest first in the
// same frame shape the live channel uses.
func NewHandler(store Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				limit = n
			}
		}
		limit = ClampLimit(limit)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		readings, err := store.Recent(ctx, limit)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		data := make([]json.RawMessage, 0, len(readings))
		for i := range readings {
			frame, err := readings[i].MarshalFrame()
			if err != nil {
				continue
			}
			data = append(data, frame)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    data,
		})
	})
}
