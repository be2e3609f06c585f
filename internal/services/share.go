package services

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"cafe-route-service/internal/domain"
)

// EncodeShareToken packs a complete plan snapshot into a URL-safe token.
func EncodeShareToken(plan domain.Plan) (string, error) {
	plan = plan.Clone()
	normalizePlan(&plan)
	if err := domain.ValidatePlan(plan); err != nil {
		return "", err
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return "", errors.Wrap(err, "encode share token")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeShareToken reverses EncodeShareToken. Padded and standard-alphabet tokens
// produced by older clients are accepted too. The decoded plan is validated.
func DecodeShareToken(token string) (domain.Plan, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Plan{}, domain.NewValidationError("token", "share token is empty")
	}

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		raw, err = enc.DecodeString(token)
		if err == nil {
			break
		}
	}
	if err != nil {
		return domain.Plan{}, domain.NewValidationError("token", "share token is not base64")
	}

	p, err := decodePlan(raw)
	if err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}
