package social

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0/me"

// FacebookVerifier resolves user access tokens through the Graph API. The id
// it returns is app-scoped.
type FacebookVerifier struct {
	client    *http.Client
	appSecret string
	endpoint  string
}

func NewFacebookVerifier(client *http.Client, appSecret string) *FacebookVerifier {
	return &FacebookVerifier{
		client:    clientOrDefault(client),
		appSecret: appSecret,
		endpoint:  facebookGraphURL,
	}
}

type facebookProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *FacebookVerifier) Verify(ctx context.Context, token string) (*domain.SocialIdentity, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email,picture")
	q.Set("access_token", token)
	if f.appSecret != "" {
		q.Set("appsecret_proof", appSecretProof(token, f.appSecret))
	}

	var profile facebookProfile
	if err := getJSON(ctx, f.client, f.endpoint+"?"+q.Encode(), &profile); err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, errors.New("facebook profile has no email permission")
	}

	return &domain.SocialIdentity{
		Provider:    domain.ProviderFacebook,
		ExternalID:  profile.ID,
		Email:       profile.Email,
		DisplayName: profile.Name,
		AvatarURL:   optional(profile.Picture.Data.URL),
	}, nil
}

func appSecretProof(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
