package cloudflare

import "github.com/go-resty/resty/v2"

// AuthStrategy 一种鉴权头的写法
type AuthStrategy interface {
	Name() string
	Apply(req *resty.Request)
}

// BearerAuth Authorization: Bearer <token>
type BearerAuth struct {
	Token string
}

func (BearerAuth) Name() string { return "bearer" }

func (a BearerAuth) Apply(req *resty.Request) {
	req.SetAuthToken(a.Token)
}

// APIKeyAuth X-Auth-Key，配置了邮箱时附带 X-Auth-Email
type APIKeyAuth struct {
	Key   string
	Email string
}

func (APIKeyAuth) Name() string { return "api_key" }

func (a APIKeyAuth) Apply(req *resty.Request) {
	req.SetHeader("X-Auth-Key", a.Key)
	if a.Email != "" {
		req.SetHeader("X-Auth-Email", a.Email)
	}
}

// DefaultStrategies 先 Bearer，后 API Key
func DefaultStrategies(creds Credentials) []AuthStrategy {
	return []AuthStrategy{
		BearerAuth{Token: creds.APIToken},
		APIKeyAuth{Key: creds.APIToken, Email: creds.AuthEmail},
	}
}
