package crypto

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// xorKMS stands in for KMS with a reversible transform.
type xorKMS struct {
	failDecrypt bool
	keyIDs      []string
}

func xor(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c ^ 0x5a
	}
	return out
}

func (f *xorKMS) Encrypt(_ context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.keyIDs = append(f.keyIDs, *in.KeyId)
	return &kms.EncryptOutput{CiphertextBlob: xor(in.Plaintext)}, nil
}

func (f *xorKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	if f.failDecrypt {
		return nil, errors.New("access denied")
	}
	return &kms.DecryptOutput{Plaintext: xor(in.CiphertextBlob)}, nil
}

func TestKMSService_EncryptDecrypt(t *testing.T) {
	client := &xorKMS{}
	svc := NewKMSService(client, "alias/test")
	ctx := context.Background()

	ct, err := svc.Encrypt(ctx, "1//refresh-token")
	require.NoError(t, err)
	assert.NotContains(t, ct, "refresh-token")

	pt, err := svc.Decrypt(ctx, ct)
	require.NoError(t, err)
	assert.Equal(t, "1//refresh-token", pt)
	assert.Equal(t, []string{"alias/test"}, client.keyIDs)
}

func TestKMSService_Errors(t *testing.T) {
	ctx := context.Background()
	svc := NewKMSService(&xorKMS{failDecrypt: true}, "alias/test")

	_, err := svc.Encrypt(ctx, "")
	assert.Error(t, err)

	_, err = svc.Decrypt(ctx, "%%% not base64")
	assert.Error(t, err)

	_, err = svc.Decrypt(ctx, "AAAA")
	assert.ErrorContains(t, err, "access denied")
}

func TestMockEncryptor(t *testing.T) {
	m := NewMockEncryptor()
	ctx := context.Background()

	ct, err := m.Encrypt(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix([]byte(ct), []byte("mock:")))

	pt, err := m.Decrypt(ctx, ct)
	require.NoError(t, err)
	assert.Equal(t, "tok", pt)
}
