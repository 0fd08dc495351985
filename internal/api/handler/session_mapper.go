package handler

import (
	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/service"
)

// --- Service state → Response ---

// toSessionResponse renders st. fromPath is the path the app was on before
// the request; a different resulting path means the app must navigate.
func toSessionResponse(st service.State, fromPath string) sessionResponse {
	resp := sessionResponse{
		Phase:         st.Phase.String(),
		Authenticated: st.User != nil,
		User:          toUserResponse(st.User),
		Path:          st.Path,
	}
	if st.Phase == service.PhaseReady && st.Path != domain.NormalizePath(fromPath) {
		resp.Navigate = st.Path
	}
	return resp
}

func toUserResponse(u *domain.CurrentUser) *userResponse {
	if u == nil {
		return nil
	}
	resp := &userResponse{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		Bio:             u.Bio,
		FollowedClubIDs: u.FollowedClubIDs,
	}
	if u.Role.IsSet() {
		role := string(u.Role)
		resp.Role = &role
	}
	if resp.FollowedClubIDs == nil {
		resp.FollowedClubIDs = []string{}
	}
	return resp
}
