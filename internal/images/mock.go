package images

import "context"

// MockClient is a test double for the Client interface.
type MockClient struct {
	Identity    *CallerIdentity
	IdentityErr error
	UploadErr   error

	// UploadedFiles tracks calls as bucket/key -> local path.
	UploadedFiles map[string]string
}

// NewMockClient creates a new MockClient with default values.
func NewMockClient() *MockClient {
	return &MockClient{
		Identity: &CallerIdentity{
			Account: "123456789012",
			ARN:     "arn:aws:iam::123456789012:user/test",
			UserID:  "AIDA12345",
		},
		UploadedFiles: make(map[string]string),
	}
}

func (m *MockClient) VerifyCredentials(_ context.Context) (*CallerIdentity, error) {
	return m.Identity, m.IdentityErr
}

func (m *MockClient) UploadFile(_ context.Context, bucket, key, localPath string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.UploadedFiles[bucket+"/"+key] = localPath
	return nil
}
