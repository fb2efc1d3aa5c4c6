package fleet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

func TestParseAdapter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Adapter
		wantErr bool
	}{
		{in: "wordpress", want: WordPress},
		{in: "Drupal", want: Drupal},
		{in: " MOODLE ", want: Moodle},
		{in: "joomla", want: Joomla},
		{in: "custom", want: Custom},
		{in: "ghost", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAdapter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAdapter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYacht_Destinations(t *testing.T) {
	t.Parallel()

	y := NewYacht("alpha", "10.0.0.5", "alpha.example.com")
	assert.Equal(t, "root@10.0.0.5", y.SSHDestination())
	assert.Equal(t, "root@10.0.0.5:/var/www/html/", y.RsyncDestination())
	assert.Equal(t, "22", y.Port())

	y.SSHUser = "deploy"
	y.WebRoot = "/srv/site/"
	y.SSHPort = 2222
	assert.Equal(t, "deploy@10.0.0.5:/srv/site/", y.RsyncDestination())
	assert.Equal(t, "2222", y.Port())
}

func TestFleet_AddRemoveGet(t *testing.T) {
	t.Parallel()

	f := Default()
	require.NoError(t, f.Add(NewYacht("beta", "10.0.0.2", "b.example")))
	require.NoError(t, f.Add(NewYacht("alpha", "10.0.0.1", "a.example")))

	err := f.Add(NewYacht("alpha", "10.0.0.9", "dup.example"))
	assert.ErrorIs(t, err, ErrExists)

	assert.ErrorIs(t, f.Add(NewYacht("", "1.1.1.1", "x")), ErrInvalidName)
	assert.ErrorIs(t, f.Add(NewYacht("a/b", "1.1.1.1", "x")), ErrInvalidName)

	y, err := f.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", y.IP)

	_, err = f.Get("gamma")
	assert.ErrorIs(t, err, ErrNotFound)

	names := func(ys []Yacht) []string {
		out := []string{}
		for _, y := range ys {
			out = append(out, y.Name)
		}
		return out
	}
	assert.Equal(t, []string{"alpha", "beta"}, names(f.List()))

	b := f.Yachts["beta"]
	b.Enabled = false
	f.Yachts["beta"] = b
	assert.Equal(t, []string{"alpha"}, names(f.Enabled()))

	require.NoError(t, f.Remove("alpha"))
	assert.ErrorIs(t, f.Remove("alpha"), ErrNotFound)
	assert.Len(t, f.Yachts, 1)
}

func TestLoad_MissingFileIsDefault(t *testing.T) {
	t.Parallel()

	f, err := Load(filepath.Join(t.TempDir(), "fleet.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSyncExcludes, f.SyncExcludes)
	assert.Empty(t, f.Yachts)
	assert.NotNil(t, f.Yachts)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "fleet.yaml")
	f := Default()
	y := NewYacht("alpha", "10.0.0.1", "a.example")
	y.Adapter = Drupal
	y.Tags = []string{"prod", "eu"}
	require.NoError(t, f.Add(y))

	require.NoError(t, f.Save(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestLoad_FillsNamesAndExcludes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fleet.yaml")
	doc := "yachts:\n  alpha:\n    ip: 10.0.0.1\n    enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha", f.Yachts["alpha"].Name)
	assert.Equal(t, DefaultSyncExcludes, f.SyncExcludes)
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("yachts: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrParse))
}
