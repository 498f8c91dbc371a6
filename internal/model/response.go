package model

// UserResponse is the public view of an account, returned by the session and
// profile endpoints. It deliberately excludes the password hash and API key.
type UserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	ProfileImageURL string `json:"profile_image_url"`
}

// SigninResponse is returned by every token-issuing endpoint (signin, signup,
// admin add). The token also travels in the HTTP-only cookie; it is repeated
// in the body for non-browser clients.
type SigninResponse struct {
	Token           string `json:"token"`
	TokenType       string `json:"token_type"`
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	ProfileImageURL string `json:"profile_image_url"`
}

// NewUserResponse builds a UserResponse from a full user record.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// NewSigninResponse pairs a freshly issued token with the user's public fields.
func NewSigninResponse(token string, u *User) SigninResponse {
	return SigninResponse{
		Token:           token,
		TokenType:       "Bearer",
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		ProfileImageURL: u.ProfileImageURL,
	}
}
