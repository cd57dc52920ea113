package tools

import (
	"context"
	"fmt"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/vcs"
)

// CommitMessageDrafter proposes a commit message for staged changes.
type CommitMessageDrafter interface {
	DraftCommitMessage(ctx context.Context, stat string, files []vcs.FileStat, patch string) (string, error)
}

// Options configures a Service.
type Options struct {
	Opener vcs.Opener
	// Policy defaults to the process policy sampled from the environment.
	Policy *policy.Evaluator
	// Drafter is optional; without it suggest_commit_message returns the
	// staged stat only.
	Drafter CommitMessageDrafter
}

// Service holds the collaborators shared by every git tool handler.
type Service struct {
	opener  vcs.Opener
	policy  *policy.Evaluator
	drafter CommitMessageDrafter
}

func NewService(opts Options) (*Service, error) {
	if opts.Opener == nil {
		return nil, fmt.Errorf("tools: repository opener is required")
	}
	ev := opts.Policy
	if ev == nil {
		ev = policy.NewEvaluator(policy.Process())
	}
	return &Service{opener: opts.Opener, policy: ev, drafter: opts.Drafter}, nil
}

// Policy returns the evaluator the handlers consult.
func (s *Service) Policy() *policy.Evaluator {
	return s.policy
}

type toolFactory func(*Service) (Tool, error)

// toolFactories lists every tool in the order tools/list reports them.
var toolFactories = []toolFactory{
	newGetStatusTool,
	newGetCommitHistoryTool,
	newGetDiffTool,
	newGetBlameTool,
	newGetBranchesTool,
	newGetRemotesTool,
	newSuggestCommitMessageTool,
	newStageTool,
	newUnstageTool,
	newCommitTool,
	newPushTool,
	newPullTool,
	newCheckoutTool,
	newCreateBranchTool,
	newDeleteBranchTool,
	newMergeTool,
	newStashTool,
	newFetchTool,
	newResetTool,
	newCherryPickTool,
	newRevertTool,
	newTagTool,
}

// Tools builds every git tool bound to s.
func (s *Service) Tools() ([]Tool, error) {
	list := make([]Tool, 0, len(toolFactories))
	for _, factory := range toolFactories {
		t, err := factory(s)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

// RegisterAll registers every git tool on reg.
func (s *Service) RegisterAll(reg *Registry) error {
	list, err := s.Tools()
	if err != nil {
		return err
	}
	for _, t := range list {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
