package rest

import "github.com/riya-gandhi/authentication-api/internal/services/account/internal/store"

// multipart framing around the photo part
const multipartOverhead = 64 << 10

type profileResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Photo    string `json:"photo"`
	IsPublic bool   `json:"isPublic"`
}

type publicProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
}

// userResponse is a full user record without its password
type userResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Photo    string `json:"photo"`
	Bio      string `json:"bio"`
	Phone    string `json:"phone"`
	IsPublic bool   `json:"isPublic"`
	IsAdmin  bool   `json:"isAdmin"`
	Provider string `json:"provider,omitempty"`
}

func toProfile(u store.User) profileResponse {
	return profileResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Photo:    u.Photo,
		IsPublic: u.IsPublic,
	}
}

func toPublicProfile(u store.User) publicProfile {
	return publicProfile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Photo: u.Photo,
	}
}

func toUser(u store.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Photo:    u.Photo,
		Bio:      u.Bio,
		Phone:    u.Phone,
		IsPublic: u.IsPublic,
		IsAdmin:  u.IsAdmin,
		Provider: u.Provider,
	}
}
