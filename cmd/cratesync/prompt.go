package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"cratesync/internal/gazelle"
	"cratesync/internal/store"
)

// terminalPrompter asks the person at the terminal to settle ambiguous
// matches and collection adoptions. It satisfies matching.Resolver,
// sitetags.GroupChooser, and groupsync.Confirmer.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// newTerminalPrompter returns nil when stdin is not a terminal, so callers
// fall back to the non-interactive defaults.
func newTerminalPrompter() *terminalPrompter {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil
	}
	return &terminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
	}
}

func (p *terminalPrompter) ResolveAmbiguity(record gazelle.TorrentRecord, candidates []store.AlbumRow) (*store.AlbumRow, error) {
	fmt.Fprintf(p.out, "\nRelease %q matches %d albums:\n", record.PathFragment, len(candidates))
	for i, candidate := range candidates {
		fmt.Fprintf(p.out, "  %d) %s - %s (%s)\n", i+1, candidate.Artist, candidate.Title, candidate.Path)
	}
	choice, err := p.pick(len(candidates))
	if err != nil || choice == 0 {
		return nil, err
	}
	return &candidates[choice-1], nil
}

func (p *terminalPrompter) ChooseGroup(album store.AlbumRow, groups []gazelle.RemoteGroup) (*gazelle.RemoteGroup, error) {
	fmt.Fprintf(p.out, "\nAlbum %q matches %d site groups:\n", album.Title, len(groups))
	for i, group := range groups {
		fmt.Fprintf(p.out, "  %d) %s - %s [%s]\n", i+1, group.Artist, group.Name, strings.Join(group.Tags, ", "))
	}
	choice, err := p.pick(len(groups))
	if err != nil || choice == 0 {
		return nil, err
	}
	return &groups[choice-1], nil
}

func (p *terminalPrompter) ConfirmAdopt(name string) (bool, error) {
	fmt.Fprintf(p.out, "Collection %q already exists and was not created by cratesync. Add albums to it? [y/N] ", name)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (p *terminalPrompter) pick(max int) (int, error) {
	for {
		fmt.Fprintf(p.out, "Pick 1-%d, or 0 to skip: ", max)
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return 0, err
		}
		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && choice >= 0 && choice <= max {
			return choice, nil
		}
		fmt.Fprintln(p.out, "Invalid choice.")
	}
}
