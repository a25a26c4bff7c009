package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/scoring"
	"github.com/spigell/cv-ranker/internal/session"
)

const (
	PromptAddSkill   = "Add skill"
	PromptSetWeights = "Set weights"
	PromptShow       = "Show ranking"
	PromptSendEmails = "Send emails to top candidates"
	PromptReset      = "Reset skills"
	PromptDescribe   = "Describe factors"
	PromptExit       = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptAddSkill, PromptSetWeights, PromptShow, PromptSendEmails, PromptReset, PromptDescribe, PromptExit},
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Load the resumes and rank them from an interactive prompt",
	Run: func(_ *cobra.Command, _ []string) {
		interactive()
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func interactive() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, sess, logger := bootstrap(ctx)
	defer logger.Sync()

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}

		if err := handleAction(ctx, action, sess, logger, runPrompt); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Error("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

// ask runs a text prompt. It is swapped out in tests.
type ask func(p promptui.Prompt) (string, error)

func runPrompt(p promptui.Prompt) (string, error) {
	return p.Run()
}

func handleAction(ctx context.Context, action string, sess *session.Session, logger *zap.Logger, ask ask) error {
	switch action {
	case PromptAddSkill:
		skill, err := ask(promptui.Prompt{Label: "Skill", Validate: requireText})
		if err != nil {
			return err
		}
		res, err := sess.AddSkill(ctx, skill)
		if err != nil {
			return warnValidation(logger, err)
		}
		showRanking(logger, res, sess.TopKSize())
		return nil
	case PromptSetWeights:
		w, err := askWeights(ask, sess.Weights())
		if err != nil {
			return err
		}
		if _, err := sess.SetWeights(w); err != nil {
			return warnValidation(logger, err)
		}
		logger.Info("weights updated, rescoring", zap.Any("weights", w))
		res, err := sess.Rescore(ctx)
		if err != nil {
			return err
		}
		showRanking(logger, res, sess.TopKSize())
		return nil
	case PromptShow:
		showRanking(logger, sess.Snapshot(), 0)
		return nil
	case PromptSendEmails:
		n, err := sess.NotifyTop(ctx)
		if err != nil {
			return err
		}
		pretty, _ := json.MarshalIndent(n.Report, "", "  ")
		logger.Info(string(pretty), zap.Int("emailed", len(n.Emailed)))
		return nil
	case PromptReset:
		sess.Reset()
		logger.Info("skills reset")
		return nil
	case PromptDescribe:
		for _, st := range sess.Describe() {
			logger.Info(st.Name, zap.Int("weight", st.Weight), zap.Any("details", st.Details))
		}
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// warnValidation reports rejected input and lets the loop re-prompt.
func warnValidation(logger *zap.Logger, err error) error {
	var verr *scoring.ValidationError
	if errors.As(err, &verr) {
		logger.Warn("input rejected", zap.String("reason", verr.Error()))
		return nil
	}
	return err
}

func askWeights(ask ask, current scoring.Weights) (scoring.Weights, error) {
	fields := []struct {
		label string
		dst   *int
		value int
	}{
		{label: "Skill weight", value: current.Skill},
		{label: "Experience weight", value: current.Experience},
		{label: "Internship weight", value: current.Internship},
		{label: "Certification weight", value: current.Certification},
	}

	var w scoring.Weights
	fields[0].dst = &w.Skill
	fields[1].dst = &w.Experience
	fields[2].dst = &w.Internship
	fields[3].dst = &w.Certification

	for _, f := range fields {
		raw, err := ask(promptui.Prompt{
			Label:    f.label,
			Default:  strconv.Itoa(f.value),
			Validate: percentage,
		})
		if err != nil {
			return scoring.Weights{}, err
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return scoring.Weights{}, err
		}
		*f.dst = v
	}
	return w, nil
}

func requireText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("skill is required")
	}
	return nil
}

func percentage(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a whole number")
	}
	if v < 0 || v > 100 {
		return errors.New("must be between 0 and 100")
	}
	return nil
}

// showRanking logs the ranking. limit <= 0 shows every candidate.
func showRanking(logger *zap.Logger, res session.Result, limit int) {
	ranked := res.Ranked
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	logger.Info("current ranking",
		zap.Strings("skills", res.ActiveSkills),
		zap.Any("weights", res.Weights),
		zap.Int("candidates", len(res.Ranked)),
	)
	for i, r := range ranked {
		logger.Info(fmt.Sprintf("#%d %s", i+1, r.ID),
			zap.Float64("score", r.Score),
			zap.String("email", r.Email),
			zap.Any("factors", r.Breakdown.Factors),
		)
	}
}
