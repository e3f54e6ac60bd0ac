package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/leadboost/leadpipe/internal/model"
)

type WorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}

func (s *WorkflowTestSuite) Test_HappyPath_AIEnabled() {
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	lead := model.Lead{ID: 1, OrganizationID: 9, Website: "https://acme.io"}
	scraped := model.Lead{ID: 1, OrganizationID: 9, Website: "https://acme.io", CompanyName: "Acme"}
	scored := scraped
	scored.Score = 85
	scored.QualificationLabel = model.LabelHot
	messaged := scored
	messaged.OutreachMessage = "Hi Acme team, ..."

	env.OnActivity(a.LoadLead, mock.Anything, int64(1)).Return(lead, nil)
	env.OnActivity(a.Scrape, mock.Anything, lead).Return(ScrapeOutcome{Lead: scraped, Success: true}, nil)
	env.OnActivity(a.CanUseAI, mock.Anything, int64(9)).Return(true, nil)
	env.OnActivity(a.Enrich, mock.Anything, EnrichInput{Lead: scraped}).
		Return(EnrichOutcome{Lead: scraped, Success: false}, nil)
	env.OnActivity(a.Score, mock.Anything, scraped).Return(scored, nil)
	env.OnActivity(a.Message, mock.Anything, MessageInput{Lead: scored, Style: "professional"}).
		Return(messaged, nil)
	env.OnActivity(a.CommitLead, mock.Anything, messaged).Return(nil)

	env.ExecuteWorkflow(ProcessLeadWorkflow, ProcessLeadInput{LeadID: 1, MessageStyle: "professional"})

	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())

	var result ProcessLeadResult
	require.NoError(s.T(), env.GetWorkflowResult(&result))
	s.Equal("completed", result.Status)
	s.True(result.ScrapingSuccess)
	s.False(result.EnrichmentSuccess)
}

func (s *WorkflowTestSuite) Test_AIDisabled_SkipsEnrichAndMessageUsesSentinel() {
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	lead := model.Lead{ID: 2, OrganizationID: 7}
	scraped := lead
	scored := scraped
	scored.Score = 10
	scored.QualificationLabel = model.LabelDisqualified

	env.OnActivity(a.LoadLead, mock.Anything, int64(2)).Return(lead, nil)
	env.OnActivity(a.Scrape, mock.Anything, lead).Return(ScrapeOutcome{Lead: scraped, Success: false}, nil)
	env.OnActivity(a.CanUseAI, mock.Anything, int64(7)).Return(false, nil)
	env.OnActivity(a.Score, mock.Anything, scraped).Return(scored, nil)

	committed := scored
	committed.OutreachMessage = sentinelMessage
	env.OnActivity(a.CommitLead, mock.Anything, committed).Return(nil)

	env.ExecuteWorkflow(ProcessLeadWorkflow, ProcessLeadInput{LeadID: 2, MessageStyle: "professional"})

	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())

	var result ProcessLeadResult
	require.NoError(s.T(), env.GetWorkflowResult(&result))
	s.Equal("completed", result.Status)
	s.False(result.ScrapingSuccess)
	s.False(result.EnrichmentSuccess)
}

func (s *WorkflowTestSuite) Test_MissingLead_FailsTheWorkflow() {
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.LoadLead, mock.Anything, int64(404)).
		Return(model.Lead{}, errors.New("lead not found"))

	env.ExecuteWorkflow(ProcessLeadWorkflow, ProcessLeadInput{LeadID: 404})

	s.True(env.IsWorkflowCompleted())
	s.Error(env.GetWorkflowError())
}

func (s *WorkflowTestSuite) Test_ScrapeExhaustsRetries_EnqueuesFailedLead() {
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	lead := model.Lead{ID: 3, OrganizationID: 5, Website: "https://down.example.com"}
	env.OnActivity(a.LoadLead, mock.Anything, int64(3)).Return(lead, nil)
	env.OnActivity(a.Scrape, mock.Anything, lead).
		Return(ScrapeOutcome{}, errors.New("dial tcp: i/o timeout"))
	env.OnActivity(a.EnqueueFailedLead, mock.Anything, int64(3), "Scrape", "transient", mock.Anything).
		Return(nil)

	env.ExecuteWorkflow(ProcessLeadWorkflow, ProcessLeadInput{LeadID: 3})

	s.True(env.IsWorkflowCompleted())
	s.Error(env.GetWorkflowError())
	env.AssertExpectations(s.T())
}
