package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	out := flag.String("o", "./CHANGELOG.md", "location to write file to")
	repoURL := flag.String("repo", "https://github.com/kubedeployer/kubedeployer", "repository url used for commit links")
	flag.Parse()

	repo, err := git.PlainOpen(".")
	if err != nil {
		return fmt.Errorf("failed to open git repo: %w", err)
	}

	iter, err := repo.Tags()
	if err != nil {
		return fmt.Errorf("failed to read tags: %w", err)
	}

	tags := map[string]string{}

	iter.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash().String()
		name := strings.TrimPrefix(ref.Name().String(), "refs/tags/")

		if previous := tags[hash]; previous != "" {
			tags[hash] = previous + " " + name
			return nil
		}

		tags[hash] = name
		return nil
	})

	commits, err := repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		return fmt.Errorf("failed to log: %w", err)
	}

	changelog := Changelog{RepoURL: *repoURL}

	commits.ForEach(func(commit *object.Commit) error {
		if tag := tags[commit.Hash.String()]; tag != "" {
			changelog.Entries = append(changelog.Entries, Entry{Tag: tag})
		}
		if len(changelog.Entries) == 0 {
			return nil
		}
		last := &changelog.Entries[len(changelog.Entries)-1]
		last.Commits = append(last.Commits, Commit{
			Msg: strings.TrimSpace(commit.Message),
			Sha: commit.Hash.String(),
		})
		return nil
	})

	if *out == "-" {
		fmt.Println(changelog)
		return nil
	}

	return os.WriteFile(*out, []byte(changelog.String()), 0o644)
}

type (
	Changelog struct {
		RepoURL string
		Entries []Entry
	}
	Commit struct {
		Msg string
		Sha string
	}
	Entry struct {
		Tag     string
		Commits []Commit
	}
)

func (entry Entry) HasBreakingChange() bool {
	return slices.ContainsFunc(entry.Commits, func(commit Commit) bool {
		return strings.Contains(strings.ToLower(commit.Msg), "breaking change")
	})
}

func (changelog Changelog) String() string {
	var builder strings.Builder
	builder.WriteString("# Changelog\n\n")

	for _, entry := range changelog.Entries {
		builder.WriteString("## " + entry.Tag + "\n\n")

		if entry.HasBreakingChange() {
			builder.WriteString("> [!CAUTION]\n")
			builder.WriteString("> This version contains breaking changes and is not expected to be compatible with previous versions.\n\n")
		}

		for _, commit := range entry.Commits {
			builder.WriteString(fmt.Sprintf("* %s ([%s](%s/commit/%s))\n", commit.Msg, commit.Sha[:7], changelog.RepoURL, commit.Sha))
		}
		builder.WriteByte('\n')
	}

	return builder.String()
}
