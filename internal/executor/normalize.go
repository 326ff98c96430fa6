package executor

import (
	"os"
	"path/filepath"
	"strings"
)

// dirAlias maps the names a user may type for a well-known folder to
// the concrete directory names that may exist under the home directory,
// in probe order. openKylin desktops localise the visible name while
// the on-disk name may be either Chinese or English.
type dirAlias struct {
	inputs     []string
	candidates []string
}

var dirAliases = []dirAlias{
	{[]string{"桌面", "Desktop", "desktop"}, []string{"桌面", "Desktop"}},
	{[]string{"文档", "Documents", "documents"}, []string{"文档", "Documents"}},
	{[]string{"下载", "Downloads", "downloads"}, []string{"下载", "Downloads"}},
	{[]string{"图片", "Pictures", "pictures"}, []string{"图片", "Pictures"}},
	{[]string{"音乐", "Music", "music"}, []string{"音乐", "Music"}},
	{[]string{"视频", "Videos", "videos"}, []string{"视频", "Videos"}},
	{[]string{"公共", "Public", "public"}, []string{"公共", "Public"}},
	{[]string{"模板", "Templates", "templates"}, []string{"模板", "Templates"}},
}

// Normalizer resolves user-facing logical paths to concrete filesystem
// locations. Normalize is total: it always produces a path; whether the
// path exists is the filesystem layer's problem.
type Normalizer struct {
	home string

	// exists is injectable for deterministic tests. Defaults to an
	// os.Stat probe.
	exists func(path string) bool
}

// NewNormalizer creates a Normalizer rooted at home.
func NewNormalizer(home string) *Normalizer {
	return &Normalizer{
		home: home,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Home returns the home directory the normalizer resolves against.
func (n *Normalizer) Home() string {
	return n.home
}

// Normalize resolves a logical path:
//   - empty → home directory
//   - "~" or "~/..." → home-expanded
//   - absolute → unchanged
//   - a well-known folder name (or such a name as a leading component)
//     → the first existing candidate directory under home, else the
//     first candidate
//   - any other relative path → under home
func (n *Normalizer) Normalize(logical string) string {
	if logical == "" {
		return n.home
	}

	if logical == "~" {
		return n.home
	}
	if strings.HasPrefix(logical, "~/") {
		return filepath.Join(n.home, logical[2:])
	}

	if filepath.IsAbs(logical) {
		return logical
	}

	for _, alias := range dirAliases {
		for _, input := range alias.inputs {
			if logical == input {
				return n.resolveAlias(alias, "")
			}
			if strings.HasPrefix(logical, input+"/") {
				return n.resolveAlias(alias, logical[len(input)+1:])
			}
		}
	}

	return filepath.Join(n.home, logical)
}

// resolveAlias probes the candidates in order and roots rest beneath
// the first that exists, falling back to the first candidate so the
// operation never fails to produce a path.
func (n *Normalizer) resolveAlias(alias dirAlias, rest string) string {
	for _, candidate := range alias.candidates {
		dir := filepath.Join(n.home, candidate)
		if n.exists(dir) {
			return filepath.Join(dir, rest)
		}
	}
	return filepath.Join(n.home, alias.candidates[0], rest)
}
