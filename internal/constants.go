package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "dfi_access_token"
	COOKIE_REDIRECT_NAME     = "dfi_redirect"
)
