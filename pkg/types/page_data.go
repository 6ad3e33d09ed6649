package types

type NavbarData struct {
	IsAuthenticated bool
	UserID          string
	UserEmail       string
	UserName        string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

type BasePageData struct {
	Title  string
	Navbar NavbarData
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

type HomePageData struct {
	BasePageData
	Notice string
	Error  string
}

type RegisterPageData struct {
	BasePageData
	GivenName   string
	FamilyName  string
	Email       string
	Error       string
	FieldErrors map[string]string
}

type ConfirmRegisterPageData struct {
	BasePageData
	Email string
	Error string
}

type LoginPageData struct {
	BasePageData
	Email     string
	Confirmed bool
	Error     string
}

type VerifyPageData struct {
	BasePageData
	FullName   string
	IsVerified bool
	Error      string
}

type ProfilePageData struct {
	BasePageData
	UserID        string
	UserEmail     string
	WelcomeName   string
	IsVerified    bool
	VerifiedAt    string
	WalletAddress string
	Notice        string
	Error         string
}

type WalletPageData struct {
	BasePageData
	WalletAddress  string
	BalanceEth     string
	NetworkName    string
	ProviderStatus string
	Notice         string
	Error          string
	TxHash         string
}

type MarketPageData struct {
	BasePageData
	Coin       string
	SeriesJSON string
	Summary    string
	Error      string
}
