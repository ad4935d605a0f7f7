package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dorkroom/internal/core"
	"dorkroom/internal/intake"
	"dorkroom/pkg/domain"
)

// candidateFile is the JSON shape accepted by admit --json.
type candidateFile struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func newAdmitCmd(a *app) *cobra.Command {
	var (
		kind, issueBody, issueFile, jsonFile string
		commit, acknowledge                  bool
	)
	cmd := &cobra.Command{
		Use:   "admit",
		Short: "Validate a new or updated record and optionally commit it",
		Long: "Admit checks a candidate record against the loaded dataset. Without --commit it is a dry run.\n" +
			"The candidate comes from a submission form body (--issue-body or --issue-file) or a JSON file (--json).",
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, _ []string) error {
		k, err := domain.ParseEntityKind(kind)
		if err != nil {
			return err
		}
		cand, err := a.readCandidate(cmd, k, issueBody, issueFile, jsonFile)
		if err != nil {
			return err
		}
		res, err := a.svc.Admit(cmd.Context(), cand, core.AdmitOptions{DryRun: !commit, AcknowledgeWarnings: acknowledge})
		if res.Outcome != "" {
			if perr := a.print(res); perr != nil {
				return perr
			}
		}
		var held core.ErrHeld
		if errors.As(err, &held) {
			return fmt.Errorf("%w; rerun with --acknowledge-warnings to commit", err)
		}
		return err
	})
	flags := cmd.Flags()
	flags.StringVar(&kind, "kind", "", "record kind: film, developer, combination or format")
	flags.StringVar(&issueBody, "issue-body", "", "submission form body text")
	flags.StringVar(&issueFile, "issue-file", "", "file holding a submission form body (- for stdin)")
	flags.StringVar(&jsonFile, "json", "", "JSON candidate file with id and fields (- for stdin)")
	flags.BoolVar(&commit, "commit", false, "write the record when it is accepted")
	flags.BoolVar(&acknowledge, "acknowledge-warnings", false, "commit despite near-duplicate warnings")
	_ = cmd.MarkFlagRequired("kind")
	cmd.MarkFlagsMutuallyExclusive("issue-body", "issue-file", "json")
	cmd.MarkFlagsOneRequired("issue-body", "issue-file", "json")
	return cmd
}

func (a *app) readCandidate(cmd *cobra.Command, kind domain.EntityKind, body, bodyFile, jsonFile string) (domain.Candidate, error) {
	if jsonFile != "" {
		raw, err := readInput(cmd, jsonFile)
		if err != nil {
			return domain.Candidate{}, err
		}
		var cf candidateFile
		if err := json.Unmarshal(raw, &cf); err != nil {
			return domain.Candidate{}, fmt.Errorf("decode %s: %w", jsonFile, err)
		}
		return domain.Candidate{Kind: kind, ID: cf.ID, Fields: cf.Fields}, nil
	}
	if bodyFile != "" {
		raw, err := readInput(cmd, bodyFile)
		if err != nil {
			return domain.Candidate{}, err
		}
		body = string(raw)
	}
	snap, err := a.engine().Snapshot()
	if err != nil {
		return domain.Candidate{}, err
	}
	return intake.FromIssue(kind, body, intake.SnapshotLookup{Snapshot: snap})
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}
