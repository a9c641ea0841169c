package paths

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) Getenv {
	return func(key string) string {
		return m[key]
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		env           map[string]string
		wantContainer string
		wantBlobPath  string
		wantEmbedded  bool
	}{
		{
			name:          "slash delimited container",
			path:          "mycontainer/dir/a.txt",
			wantContainer: "mycontainer",
			wantBlobPath:  "dir/a.txt",
			wantEmbedded:  true,
		},
		{
			name:          "colon delimited container",
			path:          "mycontainer:sub/dir/file.txt",
			wantContainer: "mycontainer",
			wantBlobPath:  "sub/dir/file.txt",
			wantEmbedded:  true,
		},
		{
			name:          "container with hyphens and digits",
			path:          "raw-data-2024/part-0001.parquet",
			wantContainer: "raw-data-2024",
			wantBlobPath:  "part-0001.parquet",
			wantEmbedded:  true,
		},
		{
			name:          "single letter container",
			path:          "a/b",
			wantContainer: "a",
			wantBlobPath:  "b",
			wantEmbedded:  true,
		},
		{
			name:          "container only",
			path:          "reports/",
			wantContainer: "reports",
			wantBlobPath:  "",
			wantEmbedded:  true,
		},
		{
			name:          "uppercase prefix falls back to default",
			path:          "Reports/summary.csv",
			wantContainer: "default",
			wantBlobPath:  "Reports/summary.csv",
		},
		{
			name:          "leading digit falls back to default",
			path:          "2024/summary.csv",
			wantContainer: "default",
			wantBlobPath:  "2024/summary.csv",
		},
		{
			name:          "no delimiter falls back to default",
			path:          "summary.csv",
			wantContainer: "default",
			wantBlobPath:  "summary.csv",
		},
		{
			name:          "leading slash falls back to default",
			path:          "/abc/summary.csv",
			wantContainer: "default",
			wantBlobPath:  "/abc/summary.csv",
		},
		{
			name:          "fallback from environment",
			path:          "summary.csv",
			env:           map[string]string{ContainerEnvKey: "lake01"},
			wantContainer: "lake01",
			wantBlobPath:  "summary.csv",
		},
		{
			name:          "environment fallback with hyphen is ignored",
			path:          "summary.csv",
			env:           map[string]string{ContainerEnvKey: "lake-01"},
			wantContainer: "default",
			wantBlobPath:  "summary.csv",
		},
		{
			name:          "environment fallback with uppercase is ignored",
			path:          "summary.csv",
			env:           map[string]string{ContainerEnvKey: "Lake"},
			wantContainer: "default",
			wantBlobPath:  "summary.csv",
		},
		{
			name:          "embedded container wins over environment",
			path:          "mycontainer/a.txt",
			env:           map[string]string{ContainerEnvKey: "lake01"},
			wantContainer: "mycontainer",
			wantBlobPath:  "a.txt",
			wantEmbedded:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := require.New(t)

			ref := Resolve(tt.path, envMap(tt.env))
			assert.Equal(tt.wantContainer, ref.Container)
			assert.Equal(tt.wantBlobPath, ref.BlobPath)
			assert.Equal(tt.wantEmbedded, ref.Embedded)

			assert.Equal(tt.wantContainer, ContainerName(tt.path, envMap(tt.env)))
			assert.Equal(tt.wantBlobPath, BlobPath(tt.path, envMap(tt.env)))
		})
	}
}

func TestResolveProcessEnvironment(t *testing.T) {
	t.Setenv(ContainerEnvKey, "fromenv")

	ref := Resolve("file.txt", nil)
	require.Equal(t, "fromenv", ref.Container)
	require.Equal(t, "file.txt", ref.BlobPath)
}

func TestDownloadLocation(t *testing.T) {
	tests := []struct {
		name         string
		folder       string
		path         string
		removeSpaces bool
		want         string
	}{
		{
			name:         "spaces replaced",
			folder:       "/out",
			path:         "mycontainer/a b.txt",
			removeSpaces: true,
			want:         "/out/mycontainer/a-b.txt",
		},
		{
			name:   "spaces kept",
			folder: "/out",
			path:   "mycontainer/a b.txt",
			want:   "/out/mycontainer/a b.txt",
		},
		{
			name:         "spaces in folder are replaced too",
			folder:       "/my downloads",
			path:         "mycontainer:dir/x y.txt",
			removeSpaces: true,
			want:         "/my-downloads/mycontainer/dir/x-y.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := Resolve(tt.path, envMap(nil))
			require.Equal(t, tt.want, DownloadLocation(tt.folder, ref, tt.removeSpaces))
		})
	}
}

func TestReferenceString(t *testing.T) {
	ref := Resolve("mycontainer:dir/a.txt", envMap(nil))
	require.Equal(t, "mycontainer/dir/a.txt", ref.String())
}

func TestRelPathCheck(t *testing.T) {
	type args struct {
		base string
		path string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "path within base with nested directories",
			args: args{
				base: "/out",
				path: "/out/mycontainer/dir/a.txt",
			},
			want: "mycontainer/dir/a.txt",
		},
		{
			name: "path escaping base",
			args: args{
				base: "/out",
				path: "/out/mycontainer/../../etc/passwd",
			},
			want: "",
		},
		{
			name: "dotted file name stays inside base",
			args: args{
				base: "/out",
				path: "/out/..hidden",
			},
			want: "..hidden",
		},
		{
			name: "invalid path",
			args: args{
				path: "C:\\",
				base: "/out",
			},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelPathCheck(tt.args.base, tt.args.path); got != tt.want {
				t.Errorf("RelPathCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}
