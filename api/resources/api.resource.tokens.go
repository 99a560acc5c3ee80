package resources

import (
	"encoding/json"
	"net/http"

	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/service"
	nuts "github.com/vaudience/go-nuts"
)

// TokenHandlers encapsulates socket-token issuance. The endpoint is guarded
// by the internal-key middleware: only the web tier, which has already
// authenticated the browser session, may exchange a user id for a token.
type TokenHandlers struct {
	service *service.Service
}

type issueTokenRequest struct {
	UserID string `json:"userId"`
}

type issueTokenResponse struct {
	Token string `json:"token"`
}

func (h *TokenHandlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	signed, err := h.service.IssueSocketToken(req.UserID)
	if err != nil {
		if errors.IsValidation(err) {
			respondWithError(w, errors.NewValidationError("userId is required", err).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to issue token", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, issueTokenResponse{Token: signed})
}
