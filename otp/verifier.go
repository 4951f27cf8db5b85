package otp

import (
	"context"
	"encoding/base32"
	"strings"
	"time"

	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const moduleName = "otp"

// verification template registered with the messaging provider; the single
// body parameter is the code itself.
const verificationTemplateName = "phone_verification"

// TemplateSender sends a pre-approved template message to a phone number.
// Satisfied by the messaging gateway client.
type TemplateSender interface {
	SendTemplate(ctx context.Context, toPhone string, templateName string, bodyParams []string) error
}

// Verifier issues and checks time-based one-time codes for phone number
// verification. The secret lives for the lifetime of the process: a restart
// invalidates every outstanding code, which is acceptable because codes only
// live for a couple of minutes anyway.
type Verifier struct {
	secret []byte
	sender TemplateSender
}

func NewVerifier(sender TemplateSender) *Verifier {
	id := uuid.New()
	return &Verifier{
		secret: id[:],
		sender: sender,
	}
}

var codeOpts = totp.ValidateOpts{
	Period:    60,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA512,
}

// phoneSecret derives a per-phone TOTP secret so a code issued for one number
// never validates for another.
func (v *Verifier) phoneSecret(phone string) string {
	material := make([]byte, 0, len(v.secret)+len(phone))
	material = append(material, v.secret...)
	material = append(material, []byte(phone)...)
	return base32.StdEncoding.EncodeToString(material)
}

// IssueCode returns the 6-digit code currently valid for phone.
func (v *Verifier) IssueCode(phone string) (string, error) {
	return totp.GenerateCodeCustom(v.phoneSecret(phone), time.Now().UTC(), codeOpts)
}

// CheckCode reports whether code is valid for phone within the current step
// plus one step of skew on either side. Malformed input is simply invalid.
func (v *Verifier) CheckCode(phone string, code string) bool {
	code = strings.TrimSpace(code)
	if phone == "" || len(code) != codeOpts.Digits.Length() {
		return false
	}
	ok, err := totp.ValidateCustom(code, v.phoneSecret(phone), time.Now().UTC(), codeOpts)
	if err != nil {
		return false
	}
	return ok
}

// SendVerification issues the current code for phone and delivers it through
// the verification template.
func (v *Verifier) SendVerification(ctx context.Context, phone string) error {
	logger := config.GetLogger()

	code, err := v.IssueCode(phone)
	if err != nil {
		config.LogError(logger, moduleName, "SendVerification", "issue code", nil, err)
		return err
	}

	if err := v.sender.SendTemplate(ctx, phone, verificationTemplateName, []string{code}); err != nil {
		config.LogError(logger, moduleName, "SendVerification", "send template", map[string]any{"phone": phone}, err)
		return err
	}
	return nil
}
