package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Auth Configuration. SessionMaxAgeSec bounds the session cookie
	// when the identity provider does not report a token lifetime.
	SessionMaxAgeSec int `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Identity verification
	VerifierCommand  string `envconfig:"VERIFIER_COMMAND" default:"python"`
	VerifierScript   string `envconfig:"VERIFIER_SCRIPT" default:"ai_identity_verification.py"`
	UploadDir        string `envconfig:"UPLOAD_DIR"` // defaults to <os tmpdir>/dfi-uploads
	VerifyTimeoutSec uint   `envconfig:"VERIFY_TIMEOUT_SEC" default:"300"`

	// Ethereum JSON-RPC
	EthRPCURL  string `envconfig:"ETH_RPC_URL"`
	EthChainID int64  `envconfig:"ETH_CHAIN_ID" default:"1"`

	// Market data
	MarketDataBaseURL string `envconfig:"MARKET_DATA_BASE_URL" default:"https://api.coingecko.com/api/v3"`
}
