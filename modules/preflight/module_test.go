package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/registry"
)

func TestParsePipVersion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		output  string
		want    string
		wantErr string
	}{
		{
			name:   "typical output",
			output: "pip 23.0.1 from /usr/lib/python3/dist-packages/pip (python 3.10)",
			want:   "23.0.1",
		},
		{
			name:   "two component version",
			output: "pip 21.3 from /usr/lib/python3/site-packages/pip (python 3.9)",
			want:   "21.3.0",
		},
		{
			name:    "garbage output",
			output:  "command not found",
			wantErr: "unrecognized pip --version output",
		},
		{
			name:    "unparseable version",
			output:  "pip vNext from somewhere",
			wantErr: "unparseable pip version",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v, err := parsePipVersion(tc.output)

			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, v.String())
		})
	}
}

// fakePython installs a python3 shim on PATH that answers `-m pip --version`
// with the given version line.
func fakePython(t *testing.T, versionLine string, exitCode int) {
	t.Helper()

	binDir := t.TempDir()
	script := "#!/bin/sh\necho \"" + versionLine + "\"\nexit "
	if exitCode == 0 {
		script += "0\n"
	} else {
		script += "1\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "python3"), []byte(script), 0o755))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestOnRunPreflight_Passes(t *testing.T) {
	fakePython(t, "pip 23.0.1 from /usr/lib/python3/dist-packages/pip (python 3.10)", 0)

	env := &registry.Env{Home: t.TempDir(), PlanDir: t.TempDir(), OnConflict: config.Overwrite}

	result, err := OnRunPreflight(context.Background(), env, &Input{MinPip: "21.3"})

	require.NoError(t, err)
	require.Contains(t, result.Summary, "pip 23.0.1 ok")
}

func TestOnRunPreflight_RejectsOldPip(t *testing.T) {
	fakePython(t, "pip 20.0.2 from /usr/lib/python3/dist-packages/pip (python 3.8)", 0)

	env := &registry.Env{Home: t.TempDir(), PlanDir: t.TempDir(), OnConflict: config.Overwrite}

	_, err := OnRunPreflight(context.Background(), env, &Input{MinPip: "21.3"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "older than required minimum 21.3")
}

func TestOnRunPreflight_MissingPip(t *testing.T) {
	fakePython(t, "No module named pip", 1)

	env := &registry.Env{Home: t.TempDir(), PlanDir: t.TempDir(), OnConflict: config.Overwrite}

	_, err := OnRunPreflight(context.Background(), env, &Input{})

	require.Error(t, err)
	require.Contains(t, err.Error(), "has no usable pip")
}

func TestOnRunPreflight_UnwritableHome(t *testing.T) {
	fakePython(t, "pip 23.0.1 from /usr/lib/python3/dist-packages/pip (python 3.10)", 0)

	env := &registry.Env{
		Home:       filepath.Join(t.TempDir(), "missing-home"),
		PlanDir:    t.TempDir(),
		OnConflict: config.Overwrite,
	}

	_, err := OnRunPreflight(context.Background(), env, &Input{})

	require.Error(t, err)
	require.Contains(t, err.Error(), "not writable")
}
