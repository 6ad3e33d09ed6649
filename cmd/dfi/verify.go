package main

import (
	"context"
	"errors"
	"fmt"

	"dfi/internal/auth"
	"dfi/internal/verifyclient"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/urfave/cli/v2"
)

var verifyCommand = &cli.Command{
	Name:  "verify",
	Usage: "Run the identity verification wizard against a running server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "server",
			Usage:    "Base URL of the dfi server",
			Value:    "http://localhost:8080",
			Required: false,
		},
		&cli.StringFlag{
			Name:     "document",
			Usage:    "Path to the identity document image",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "video",
			Usage:    "Path to the selfie video",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "full-name",
			Usage:    "Full name as printed on the document",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Access token for the server (skips the sign-in step)",
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "Account email, used to sign in when --token is not given",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Account password, used to sign in when --token is not given",
		},
	},
	Action: runVerify,
}

// printNotifier writes wizard messages to stdout.
type printNotifier struct{}

func (printNotifier) Notify(message string) {
	fmt.Println(message)
}

func runVerify(c *cli.Context) error {
	ctx := context.Background()

	token, err := resolveAccessToken(ctx, c)
	if err != nil {
		return err
	}

	wizard := verifyclient.NewWizard(
		verifyclient.NewClient(c.String("server"), verifyclient.WithAccessToken(token)),
		printNotifier{},
		c.String("full-name"),
	)

	if err := wizard.SetDocument(c.String("document")); err != nil {
		return err
	}
	if err := wizard.SetVideo(c.String("video")); err != nil {
		return err
	}

	return wizard.Submit(ctx, func(progress int) {
		fmt.Printf("progress: %d%%\n", progress)
	})
}

// resolveAccessToken returns the bearer token the verification endpoint
// requires, either given directly or obtained by signing in.
func resolveAccessToken(ctx context.Context, c *cli.Context) (string, error) {
	if token := c.String("token"); token != "" {
		return token, nil
	}

	email := c.String("email")
	password := c.String("password")
	if email == "" || password == "" {
		return "", errors.New("provide --token, or --email and --password to sign in")
	}

	config, err := loadConfig()
	if err != nil {
		return "", err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return "", err
	}

	authClient := auth.NewCognitoClient(cognitoidentityprovider.NewFromConfig(awsConfig), config.CognitoClientID)
	session, err := authClient.SignIn(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("failed to sign in: %w", err)
	}

	return session.AccessToken, nil
}
