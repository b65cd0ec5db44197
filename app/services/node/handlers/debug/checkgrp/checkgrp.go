// Package checkgrp maintains the group of handlers for health checking.
package checkgrp

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"go.uber.org/zap"
)

// Handlers manages the set of check endpoints.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
	State *state.State
}

// Readiness checks if the ledger is ready to serve requests. The chain
// must hold at least the genesis block and be valid.
func (h Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	statusCode := http.StatusOK

	if h.State.RetrieveChainLength() == 0 || !h.State.IsChainValid() {
		status = "chain not valid"
		statusCode = http.StatusInternalServerError
	}

	data := struct {
		Status string `json:"status"`
		Length int    `json:"length"`
	}{
		Status: status,
		Length: h.State.RetrieveChainLength(),
	}

	if err := response(w, statusCode, data); err != nil {
		h.Log.Errorw("readiness", "ERROR", err)
	}

	h.Log.Infow("readiness", "statusCode", statusCode, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)
}

// Liveness returns simple status info if the service is alive.
func (h Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	data := struct {
		Status      string `json:"status,omitempty"`
		Build       string `json:"build,omitempty"`
		Host        string `json:"host,omitempty"`
		Beneficiary string `json:"beneficiary,omitempty"`
	}{
		Status:      "up",
		Build:       h.Build,
		Host:        host,
		Beneficiary: string(h.State.RetrieveBeneficiary()),
	}

	if err := response(w, http.StatusOK, data); err != nil {
		h.Log.Errorw("liveness", "ERROR", err)
	}
}

func response(w http.ResponseWriter, statusCode int, data any) error {

	// Convert the response value to JSON.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	// Set the content type and headers once we know marshaling has succeeded.
	w.Header().Set("Content-Type", "application/json")

	// Write the status code to the response.
	w.WriteHeader(statusCode)

	// Send the result back to the client.
	if _, err := w.Write(jsonData); err != nil {
		return err
	}

	return nil
}
