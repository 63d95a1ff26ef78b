package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh", "id_rsa"), ExpandTilde("~/.ssh/id_rsa"))
	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, "/etc/key", ExpandTilde("/etc/key"))
	assert.Equal(t, "~other/key", ExpandTilde("~other/key"))
}

func TestJoinRemote(t *testing.T) {
	assert.Equal(t, "/etc", JoinRemote("/", "etc"))
	assert.Equal(t, "/home/user/file", JoinRemote("/home/user", "file"))
	assert.Equal(t, "/home/user/file", JoinRemote("/home/user/", "file"))
	assert.Equal(t, "rel/file", JoinRemote("rel", "file"))
}

func TestRemoteParent(t *testing.T) {
	assert.Equal(t, "/", RemoteParent("/"))
	assert.Equal(t, "/", RemoteParent("/home"))
	assert.Equal(t, "/home", RemoteParent("/home/user/"))
	assert.Equal(t, "/", RemoteParent("relative"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", FormatSize(512))
	assert.Equal(t, "1.5K", FormatSize(1536))
	assert.Equal(t, "2.0M", FormatSize(2*1024*1024))
	assert.Equal(t, "3.00G", FormatSize(3*1024*1024*1024))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "-", FormatTimestamp(time.Time{}))
	assert.Equal(t, "2024-02-29", FormatTimestamp(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
}
