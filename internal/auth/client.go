package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// Sentinel errors the handlers branch on. Provider-specific exception
// types stay inside this package.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("an account with this email already exists")
	ErrInvalidPassword    = errors.New("password does not meet requirements")
	ErrCodeMismatch       = errors.New("confirmation code does not match")
	ErrInvalidParameter   = errors.New("invalid signup parameters")
)

// Session is an authenticated session returned by SignIn.
type Session struct {
	AccessToken string
	ExpiresIn   int
}

// Account is the identity record behind an access token.
type Account struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
}

// Client abstracts the identity provider.
type Client interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*Account, error)
	SignUp(ctx context.Context, email, password, givenName, familyName string) error
	ConfirmSignUp(ctx context.Context, email, code string) error
}

// CognitoClient implements Client against an AWS Cognito user pool.
type CognitoClient struct {
	api      *cognitoidentityprovider.Client
	clientID string
}

func NewCognitoClient(api *cognitoidentityprovider.Client, clientID string) *CognitoClient {
	return &CognitoClient{api: api, clientID: clientID}
}

func (c *CognitoClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		// NotAuthorizedException, UserNotConfirmedException, etc.
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		return nil, ErrInvalidCredentials
	}

	return &Session{
		AccessToken: aws.ToString(resp.AuthenticationResult.AccessToken),
		ExpiresIn:   int(resp.AuthenticationResult.ExpiresIn),
	}, nil
}

func (c *CognitoClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.api.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (c *CognitoClient) CurrentUser(ctx context.Context, accessToken string) (*Account, error) {
	resp, err := c.api.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	account := &Account{ID: aws.ToString(resp.Username)}
	for _, attr := range resp.UserAttributes {
		switch aws.ToString(attr.Name) {
		case "sub":
			account.ID = aws.ToString(attr.Value)
		case "email":
			account.Email = aws.ToString(attr.Value)
		case "given_name":
			account.GivenName = aws.ToString(attr.Value)
		case "family_name":
			account.FamilyName = aws.ToString(attr.Value)
		}
	}

	return account, nil
}

func (c *CognitoClient) SignUp(ctx context.Context, email, password, givenName, familyName string) error {
	_, err := c.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(strings.TrimSpace(email)),
		Password: aws.String(password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("given_name"), Value: aws.String(givenName)},
			{Name: aws.String("family_name"), Value: aws.String(familyName)},
		},
	})
	if err != nil {
		return mapSignUpError(err)
	}
	return nil
}

func (c *CognitoClient) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(strings.TrimSpace(email)),
		ConfirmationCode: aws.String(strings.TrimSpace(code)),
	})
	if err != nil {
		var codeMismatch *ctypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("failed to confirm signup: %w", err)
	}
	return nil
}

func mapSignUpError(err error) error {
	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		return ErrInvalidPassword
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		return ErrUserExists
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return ErrInvalidParameter
	}

	return fmt.Errorf("failed to signup user: %w", err)
}

var _ Client = (*CognitoClient)(nil)
