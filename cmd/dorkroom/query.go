package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dorkroom/internal/core"
	"dorkroom/pkg/domain"
)

func newSearchCmd(a *app) *cobra.Command {
	var kind, colorType string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Substring search over film or developer names",
		Args:  cobra.ArbitraryArgs,
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		k, err := domain.ParseEntityKind(kind)
		if err != nil {
			return err
		}
		switch k {
		case domain.EntityFilm:
			films, err := a.engine().SearchFilms(cmd.Context(), text, domain.ColorType(colorType))
			if err != nil {
				return err
			}
			return a.print(films)
		case domain.EntityDeveloper:
			devs, err := a.engine().SearchDevelopers(cmd.Context(), text)
			if err != nil {
				return err
			}
			return a.print(devs)
		default:
			return fmt.Errorf("search supports films and developers, not %s", k)
		}
	})
	cmd.Flags().StringVar(&kind, "kind", "film", "film or developer")
	cmd.Flags().StringVar(&colorType, "color-type", "", "restrict films to bw, color or slide")
	return cmd
}

func newFuzzyCmd(a *app) *cobra.Command {
	var (
		kind, colorType string
		limit           int
	)
	cmd := &cobra.Command{
		Use:   "fuzzy <query>",
		Short: "Ranked fuzzy search",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, args []string) error {
		ctx, query := cmd.Context(), strings.Join(args, " ")
		if kind == "all" {
			res, err := a.engine().SearchAll(ctx, query, limit)
			if err != nil {
				return err
			}
			return a.print(res)
		}
		k, err := domain.ParseEntityKind(kind)
		if err != nil {
			return err
		}
		var out any
		switch k {
		case domain.EntityFilm:
			out, err = a.engine().FuzzySearchFilms(ctx, query, limit, domain.ColorType(colorType))
		case domain.EntityDeveloper:
			out, err = a.engine().FuzzySearchDevelopers(ctx, query, limit)
		case domain.EntityCombination:
			out, err = a.engine().FuzzySearchCombinations(ctx, query, limit)
		default:
			return fmt.Errorf("fuzzy search does not support %s", k)
		}
		if err != nil {
			return err
		}
		return a.print(out)
	})
	cmd.Flags().StringVar(&kind, "kind", "film", "film, developer, combination or all")
	cmd.Flags().StringVar(&colorType, "color-type", "", "restrict films to bw, color or slide")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results per kind (0 uses the configured default)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Print one record; combinations are shown with their references resolved",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, args []string) error {
		k, err := domain.ParseEntityKind(args[0])
		if err != nil {
			return err
		}
		ctx, id := cmd.Context(), args[1]
		var (
			out   any
			found bool
		)
		switch k {
		case domain.EntityFilm:
			out, found, err = a.engine().GetFilm(ctx, id)
		case domain.EntityDeveloper:
			out, found, err = a.engine().GetDeveloper(ctx, id)
		case domain.EntityFormat:
			out, found, err = a.engine().GetFormat(ctx, id)
		case domain.EntityCombination:
			out, err = a.engine().ResolveCombination(ctx, id)
			found = err == nil
		}
		if err != nil {
			return err
		}
		if !found {
			return core.ErrNotFound{Entity: k, ID: id}
		}
		return a.print(out)
	})
	return cmd
}

func newCombosCmd(a *app) *cobra.Command {
	var filmID, developerID string
	cmd := &cobra.Command{
		Use:   "combos",
		Short: "List development combinations for a film or developer",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.withEngine(func(cmd *cobra.Command, _ []string) error {
		var (
			combos []domain.Combination
			err    error
		)
		switch {
		case filmID != "" && developerID != "":
			return fmt.Errorf("--film and --developer are mutually exclusive")
		case filmID != "":
			combos, err = a.engine().CombinationsForFilm(cmd.Context(), filmID)
		case developerID != "":
			combos, err = a.engine().CombinationsForDeveloper(cmd.Context(), developerID)
		default:
			combos, err = a.engine().ListCombinations(cmd.Context())
		}
		if err != nil {
			return err
		}
		return a.print(combos)
	})
	cmd.Flags().StringVar(&filmID, "film", "", "film id")
	cmd.Flags().StringVar(&developerID, "developer", "", "developer id")
	return cmd
}
