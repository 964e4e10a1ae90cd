package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEnvDefaults(t *testing.T) {
	t.Setenv("FFMPEG_BIN", "/usr/bin/ffmpeg")
	t.Setenv("FFPROBE_BIN", "/usr/bin/ffprobe")
	t.Setenv("MEDIA_ROOT", t.TempDir())

	env, err := NewEnv("")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/ffmpeg", env.FFmpegBin)
	require.Equal(t, "/usr/bin/ffprobe", env.FFprobeBin)
	require.True(t, env.RenderConcurrency >= 1)
	require.Equal(t, 600, int(env.RenderTimeoutFinal.Seconds()))
	require.Equal(t, 120, int(env.RenderTimeoutPreview.Seconds()))
	require.Equal(t, 30, int(env.AssetFetchTimeout.Seconds()))
}

func TestNewEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "env.yaml")
	err := os.WriteFile(envPath, []byte("ffmpegBin: /from/yaml/ffmpeg\nffprobeBin: /from/yaml/ffprobe\nrenderConcurrency: 3\n"), 0o600)
	require.NoError(t, err)

	t.Setenv("MEDIA_ROOT", t.TempDir())
	env, err := NewEnv(envPath)
	require.NoError(t, err)
	require.Equal(t, "/from/yaml/ffmpeg", env.FFmpegBin)
	require.Equal(t, 3, env.RenderConcurrency)

	t.Setenv("FFMPEG_BIN", "/override/ffmpeg")
	env2, err := NewEnv(envPath)
	require.NoError(t, err)
	require.Equal(t, "/override/ffmpeg", env2.FFmpegBin)
}

func TestPrepareDirectories(t *testing.T) {
	t.Setenv("FFMPEG_BIN", "/usr/bin/ffmpeg")
	t.Setenv("FFPROBE_BIN", "/usr/bin/ffprobe")
	root := t.TempDir()
	t.Setenv("MEDIA_ROOT", root)

	env, err := NewEnv("")
	require.NoError(t, err)
	require.NoError(t, env.PrepareDirectories())

	for _, dir := range []string{env.Locked(), env.Previews(), env.Backgrounds(), env.Processed()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
