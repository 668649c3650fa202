package handlers

import (
	"net/http"

	"github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
)

// ProfileRequest is the body of the profile endpoint.
type ProfileRequest struct {
	PartnerID string `json:"partner_id"`
}

// ProfileHandler serves the customer profile endpoint.
type ProfileHandler struct {
	builder  *profile.Builder
	resolver *profile.Resolver
	log      logging.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(builder *profile.Builder, resolver *profile.Resolver, log logging.Logger) *ProfileHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ProfileHandler{builder: builder, resolver: resolver, log: log.Named("profile_handler")}
}

// GetProfile serves POST /api/profile: the flat analyst-facing summary as
// profile_text, with the structured profile alongside it. A partner with no
// linked accounts still returns a profile, with a data-integrity warning
// attached.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if err := checkPartnerID(req.PartnerID); err != nil {
		writeAppError(w, err)
		return
	}

	text, err := h.resolver.Summarize(r.Context(), req.PartnerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	ucp, err := h.builder.Build(r.Context(), req.PartnerID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	payload := map[string]any{
		"partner_id":   ucp.CanonicalID,
		"ucp":          ucp,
		"profile_text": text,
	}
	if ucp.AccountData.AccountCount == 0 {
		payload["warning"] = profile.DataIntegrityWarning(req.PartnerID).Message
	}
	writeSuccess(w, payload)
}
