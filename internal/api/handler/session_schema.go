package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=120"`
}

// oauthSessionRequest carries the tokens the provider left in the URL
// fragment after an OAuth redirect.
type oauthSessionRequest struct {
	AccessToken  string `json:"access_token"  validate:"required"`
	RefreshToken string `json:"refresh_token"`
}

type pathRequest struct {
	Path string `json:"path" validate:"required,max=2048"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

type userResponse struct {
	ID              string   `json:"id"`
	Email           string   `json:"email,omitempty"`
	FullName        string   `json:"full_name"`
	AvatarURL       string   `json:"avatar_url"`
	Role            *string  `json:"role"`
	Bio             string   `json:"bio,omitempty"`
	FollowedClubIDs []string `json:"followed_club_ids"`
}

// sessionResponse is the state snapshot of one device.
type sessionResponse struct {
	Phase         string        `json:"phase"`
	Authenticated bool          `json:"authenticated"`
	User          *userResponse `json:"user"`
	// Path is where the app should be.
	Path string `json:"path"`
	// Navigate is set when the app must move to Path.
	Navigate string `json:"navigate,omitempty"`
}

type signUpResponse struct {
	ConfirmationRequired bool             `json:"confirmation_required"`
	Session              *sessionResponse `json:"session,omitempty"`
}

type dashboardSection struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

type dashboardResponse struct {
	Role     string             `json:"role"`
	Greeting string             `json:"greeting"`
	Sections []dashboardSection `json:"sections"`
}
