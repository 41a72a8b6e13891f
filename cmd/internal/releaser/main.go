package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/mod/semver"

	"github.com/davidmdm/x/xerr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	dry := flag.Bool("dry", false, "dry-run")

	var commands []string
	flag.Func("cmd", "commands to build and release", func(value string) error {
		commands = append(commands, strings.Split(value, ",")...)
		return nil
	})

	flag.Parse()

	repo, err := git.PlainOpen(".")
	if err != nil {
		return fmt.Errorf("failed to open git repo: %w", err)
	}

	iter, err := repo.Tags()
	if err != nil {
		return fmt.Errorf("failed to read tags: %w", err)
	}

	versions := map[string]string{}

	iter.ForEach(func(ref *plumbing.Reference) error {
		release, version := path.Split(ref.Name()[len("refs/tags/"):].String())
		if !semver.IsValid(version) {
			return nil
		}
		release = path.Clean(release)
		if semver.Compare(version, versions[release]) > 0 {
			versions[release] = version
		}
		return nil
	})

	releaser := Releaser{
		Versions: versions,
		Repo:     repo,
		DryRun:   *dry,
	}

	var errs []error
	for _, cmd := range commands {
		if err := releaser.ReleaseBinary(cmd); err != nil {
			errs = append(errs, fmt.Errorf("failed to release %s: %w", cmd, err))
		}
	}

	return xerr.MultiErrOrderedFrom("", errs...)
}

type Releaser struct {
	Versions map[string]string
	Repo     *git.Repository
	DryRun   bool
}

func (releaser Releaser) ReleaseBinary(name string) error {
	version := releaser.Versions[name]

	if version != "" {
		diff, err := releaser.HasDiff(name)
		if err != nil {
			return fmt.Errorf("failed to check for diff: %w", err)
		}
		if !diff {
			fmt.Printf("%s is up to date at %s\n", name, version)
			return nil
		}
	}

	outputPath, err := build(filepath.Join("cmd", name))
	if err != nil {
		return fmt.Errorf("failed to build binary: %w", err)
	}

	outputPath, err = compress(outputPath)
	if err != nil {
		return fmt.Errorf("failed to compress binary: %w", err)
	}

	tag := fmt.Sprintf("%s/%s", name, nextPatch(version))

	if releaser.DryRun {
		fmt.Println("dry-run: create release", tag)
		return nil
	}
	if err := release(tag, outputPath); err != nil {
		return fmt.Errorf("failed to release: %w", err)
	}

	return nil
}

func nextPatch(version string) string {
	if version == "" {
		return "v0.1.0"
	}

	canonical := semver.Canonical(version)
	majorMinor := semver.MajorMinor(canonical)

	patch, _ := strconv.Atoi(canonical[len(majorMinor)+1:])

	return fmt.Sprintf("%s.%d", majorMinor, patch+1)
}

func (releaser Releaser) HasDiff(name string) (bool, error) {
	tag := path.Join(name, releaser.Versions[name])

	hash, err := releaser.Repo.ResolveRevision(plumbing.Revision(plumbing.NewTagReferenceName(tag)))
	if err != nil {
		return false, fmt.Errorf("failed to resolve: %s: %w", tag, err)
	}

	tagged, err := releaser.Repo.CommitObject(*hash)
	if err != nil {
		return false, fmt.Errorf("failed to get commit for tag %s: %w", tag, err)
	}

	ref, err := releaser.Repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to resolve head: %w", err)
	}

	head, err := releaser.Repo.CommitObject(ref.Hash())
	if err != nil {
		return false, fmt.Errorf("failed to get head commit: %w", err)
	}

	headTree, err := head.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree for head commit: %w", err)
	}

	taggedTree, err := tagged.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree for tag commit: %w", err)
	}

	changes, err := headTree.Diff(taggedTree)
	if err != nil {
		return false, fmt.Errorf("failed to diff trees: %w", err)
	}

	prefix := "cmd/" + name + "/"
	for _, change := range changes {
		if strings.HasPrefix(change.From.Name, prefix) || strings.HasPrefix(change.To.Name, prefix) {
			fmt.Printf("detected change from %s to %s\n", change.From.Name, change.To.Name)
			return true, nil
		}
	}

	return false, nil
}

func build(path string) (string, error) {
	_, name := filepath.Split(path)

	cmd := exec.Command("go", "build", "-trimpath", "-o", name, "./"+path)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, output)
	}
	return name, nil
}

func release(tag, path string) error {
	out, err := exec.Command("gh", "release", "create", tag, path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

func compress(path string) (out string, err error) {
	output := path + ".gz"

	destination, err := os.Create(output)
	if err != nil {
		return "", err
	}
	defer func() {
		err = xerr.MultiErrFrom("", err, destination.Close())
	}()

	compressor, err := gzip.NewWriterLevel(destination, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("could not create gzip writer: %w", err)
	}
	defer func() {
		err = xerr.MultiErrFrom("", err, compressor.Close())
	}()

	source, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		err = xerr.MultiErrFrom("", err, source.Close())
	}()

	if _, err := io.Copy(compressor, source); err != nil {
		return "", err
	}

	return output, nil
}
