package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCognito struct {
	in  *cognitoidentityprovider.AdminGetUserInput
	out *cognitoidentityprovider.AdminGetUserOutput
	err error
}

func (f *fakeCognito) AdminGetUser(_ context.Context, in *cognitoidentityprovider.AdminGetUserInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestCognitoSourceUserAttribute(t *testing.T) {
	api := &fakeCognito{out: &cognitoidentityprovider.AdminGetUserOutput{
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String("a@example.com")},
			{Name: aws.String(TierAttribute), Value: aws.String("saving")},
		},
	}}
	src := NewCognitoSource(api, "us-east-1_pool")

	v, found, err := src.UserAttribute(context.Background(), "alice", TierAttribute)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "saving", v)
	assert.Equal(t, "us-east-1_pool", aws.ToString(api.in.UserPoolId))
	assert.Equal(t, "alice", aws.ToString(api.in.Username))

	_, found, err = src.UserAttribute(context.Background(), "alice", "custom:other")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCognitoSourceErrors(t *testing.T) {
	src := NewCognitoSource(&fakeCognito{err: &types.UserNotFoundException{Message: aws.String("nope")}}, "pool")
	_, found, err := src.UserAttribute(context.Background(), "ghost", TierAttribute)
	require.NoError(t, err)
	assert.False(t, found)

	src = NewCognitoSource(&fakeCognito{err: errors.New("throttling")}, "pool")
	_, _, err = src.UserAttribute(context.Background(), "alice", TierAttribute)
	assert.Error(t, err)
}
