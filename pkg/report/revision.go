package report

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// Revision returns a short description of the repository state at dir,
// like "main@1a2b3c4d". returns "unknown" outside a repository or for
// an empty one, a report is still useful without it.
func Revision(dir string) string {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "unknown"
	}
	return revisionOf(repo)
}

func revisionOf(repo *gogit.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return "unknown"
	}

	short := head.Hash().String()
	if len(short) > 8 {
		short = short[:8]
	}
	if name := head.Name(); name.IsBranch() {
		return fmt.Sprintf("%s@%s", name.Short(), short)
	}
	return short
}
