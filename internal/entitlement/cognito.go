package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// CognitoAPI is the part of the Cognito client used by CognitoSource.
type CognitoAPI interface {
	AdminGetUser(ctx context.Context, in *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
}

// CognitoSource reads user attributes from a Cognito user pool.
type CognitoSource struct {
	api        CognitoAPI
	userPoolID string
}

// NewCognitoSource creates an attribute source for userPoolID.
func NewCognitoSource(api CognitoAPI, userPoolID string) *CognitoSource {
	return &CognitoSource{api: api, userPoolID: userPoolID}
}

// NewCognitoSourceFromConfig builds the Cognito client from a loaded AWS config.
func NewCognitoSourceFromConfig(cfg aws.Config, userPoolID string) *CognitoSource {
	return NewCognitoSource(cognitoidentityprovider.NewFromConfig(cfg), userPoolID)
}

// UserAttribute implements AttributeSource. An unknown user is reported as not found.
func (s *CognitoSource) UserAttribute(ctx context.Context, username, name string) (string, bool, error) {
	out, err := s.api.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(s.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var nf *types.UserNotFoundException
		if errors.As(err, &nf) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("admin get user: %w", err)
	}
	for _, a := range out.UserAttributes {
		if aws.ToString(a.Name) == name {
			return aws.ToString(a.Value), true, nil
		}
	}
	return "", false, nil
}

// NoopSource reports every attribute as missing, so every user resolves to free.
// Used when no user pool is configured.
type NoopSource struct{}

// UserAttribute always reports the attribute as not found.
func (NoopSource) UserAttribute(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}
