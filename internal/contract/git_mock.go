package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	root, _ := ret.Get(0).(string)
	return root, ret.Error(1)
}

// GetDiffBetweenRefs implements the GitClient interface.
func (m *MockGitClient) GetDiffBetweenRefs(ctx context.Context, repoPath string, baseRef string, targetRef string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, baseRef, targetRef)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// ShowFileAtRef implements the GitClient interface.
func (m *MockGitClient) ShowFileAtRef(ctx context.Context, repoPath string, ref string, path string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, ref, path)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}
