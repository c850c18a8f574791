package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/mikaelw/subtrack/internal/activity"
	"github.com/mikaelw/subtrack/internal/model"
)

type InvoiceDocumentWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *InvoiceDocumentWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *InvoiceDocumentWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *InvoiceDocumentWorkflowTestSuite) TestDocument_RendersPreview() {
	docKey := "invoices/inv-1/document.pdf"
	inv := &model.Invoice{
		ID:          "inv-1",
		CustomerID:  "cust-1",
		Status:      model.InvoiceOpen,
		Currency:    "EUR",
		DocumentKey: &docKey,
	}

	s.env.OnActivity("GetInvoice", mock.Anything, "inv-1").Return(inv, nil)
	s.env.OnActivity("RenderInvoicePreview", mock.Anything, activity.RenderPreviewParams{
		InvoiceID:   "inv-1",
		DocumentKey: docKey,
		Page:        1,
	}).Return("invoices/inv-1/preview-1.png", nil)
	s.env.OnActivity("SetInvoicePreviewKey", mock.Anything, activity.SetPreviewKeyParams{
		InvoiceID:  "inv-1",
		PreviewKey: "invoices/inv-1/preview-1.png",
	}).Return(nil)

	s.env.ExecuteWorkflow(InvoiceDocumentWorkflow, "inv-1")
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *InvoiceDocumentWorkflowTestSuite) TestDocument_NoDocumentUploaded() {
	inv := &model.Invoice{
		ID:         "inv-1",
		CustomerID: "cust-1",
		Status:     model.InvoiceOpen,
		Currency:   "EUR",
	}

	s.env.OnActivity("GetInvoice", mock.Anything, "inv-1").Return(inv, nil)

	s.env.ExecuteWorkflow(InvoiceDocumentWorkflow, "inv-1")
	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Error(err)
	s.Contains(err.Error(), "has no document")
}

func (s *InvoiceDocumentWorkflowTestSuite) TestDocument_RenderFails() {
	docKey := "invoices/inv-1/document.pdf"
	inv := &model.Invoice{
		ID:          "inv-1",
		CustomerID:  "cust-1",
		Status:      model.InvoiceOpen,
		Currency:    "EUR",
		DocumentKey: &docKey,
	}

	s.env.OnActivity("GetInvoice", mock.Anything, "inv-1").Return(inv, nil)
	s.env.OnActivity("RenderInvoicePreview", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("render pdf page: damaged document"))
	// SetInvoicePreviewKey is not mocked: the invoice must keep its old
	// preview key when rendering fails.

	s.env.ExecuteWorkflow(InvoiceDocumentWorkflow, "inv-1")
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestInvoiceDocumentWorkflow(t *testing.T) {
	suite.Run(t, new(InvoiceDocumentWorkflowTestSuite))
}
