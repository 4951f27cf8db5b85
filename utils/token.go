package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// PhoneClaim proves a phone number passed OTP verification recently.
// Reminder creation requires a valid claim for the target phone.
type PhoneClaim struct {
	UserID int64  `json:"user_id"`
	Phone  string `json:"phone"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "pet-info-secret"
	}
	return secret
}

// PhoneClaimGenerate issues a short-lived token binding userID to a verified phone.
func PhoneClaimGenerate(userID int64, phone string, lifespan time.Duration) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &PhoneClaim{
		UserID: userID,
		Phone:  phone,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(lifespan).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	token, err := t.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

// PhoneClaimValidate parses a phone claim and returns it when the signature
// and expiry check out.
func PhoneClaimValidate(token string) (*PhoneClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &PhoneClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claim, ok := parsed.Claims.(*PhoneClaim)
	if !ok || !parsed.Valid {
		return nil, ErrorUnauthorized
	}
	return claim, nil
}
