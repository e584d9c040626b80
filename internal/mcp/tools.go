package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/service"
)

var toolNames = []string{
	"register_variant", "find_variant", "get_variant", "add_curation", "add_evidence",
	"query_curations", "query_evidence", "reannotate_variant", "list_submissions",
}

// VariantInput identifies a variant by coordinates.
type VariantInput struct {
	Submitter  string `json:"submitter,omitempty" jsonschema:"who registers the variant (required for register_variant)"`
	Chromosome string `json:"chromosome" jsonschema:"chromosome name, e.g. 19 or chr19"`
	Position   int64  `json:"position" jsonschema:"1-based position of the first reference base"`
	Reference  string `json:"reference" jsonschema:"reference allele"`
	Alternate  string `json:"alternate" jsonschema:"alternate allele, a single allele only"`
}

// KeyInput identifies a registered variant by key.
type KeyInput struct {
	VariantKey string `json:"variant_key" jsonschema:"variant key chromosome:position:reference:alternate"`
}

// CurationInput is the input schema for add_curation.
type CurationInput struct {
	VariantKey           string   `json:"variant_key" jsonschema:"variant key chromosome:position:reference:alternate"`
	Curator              string   `json:"curator" jsonschema:"curator identifier"`
	Comments             string   `json:"comments,omitempty" jsonschema:"free-text comments kept in the history"`
	Phenotype            string   `json:"phenotype" jsonschema:"phenotype identifier, e.g. an HPO or MONDO term"`
	InheritanceMode      string   `json:"inheritance_mode,omitempty" jsonschema:"mode of inheritance (default na)"`
	Transcript           string   `json:"transcript,omitempty" jsonschema:"transcript the curation is scoped to"`
	Classification       string   `json:"classification" jsonschema:"e.g. pathogenic_variant or benign_variant"`
	ManualConfidence     string   `json:"manual_confidence,omitempty" jsonschema:"low_confidence, medium_confidence or high_confidence"`
	ConsistencyStatus    string   `json:"consistency_status,omitempty" jsonschema:"consensus, conflict or resolved_conflict; derived when omitted"`
	Penetrance           *float64 `json:"penetrance,omitempty" jsonschema:"penetrance between 0 and 1"`
	VariableExpressivity bool     `json:"variable_expressivity,omitempty" jsonschema:"whether expressivity is variable"`
}

// PhenotypeInput is one phenotype listed by an evidence item.
type PhenotypeInput struct {
	Phenotype       string `json:"phenotype" jsonschema:"phenotype identifier"`
	InheritanceMode string `json:"inheritance_mode,omitempty" jsonschema:"mode of inheritance (default na)"`
}

// EvidenceInput is the input schema for add_evidence.
type EvidenceInput struct {
	VariantKey    string           `json:"variant_key" jsonschema:"variant key chromosome:position:reference:alternate"`
	Submitter     string           `json:"submitter" jsonschema:"submitter identifier"`
	SourceName    string           `json:"source_name" jsonschema:"name of the evidence source"`
	SourceType    string           `json:"source_type" jsonschema:"literature, database, functional_study, clinical_testing, research, trusted_partner or other"`
	SourceURL     string           `json:"source_url,omitempty" jsonschema:"link to the source"`
	AlleleOrigin  string           `json:"allele_origin,omitempty" jsonschema:"allele origin (default unknown)"`
	Phenotypes    []PhenotypeInput `json:"phenotypes,omitempty" jsonschema:"phenotypes the evidence supports"`
	Transcript    string           `json:"transcript,omitempty" jsonschema:"transcript the evidence is scoped to"`
	Pathogenicity string           `json:"pathogenicity,omitempty" jsonschema:"very_strong, strong, moderate or supporting"`
	Benignity     string           `json:"benignity,omitempty" jsonschema:"stand_alone, strong or supporting"`
	PubMedID      string           `json:"pubmed_id,omitempty" jsonschema:"PubMed identifier of the study"`
	StudyTitle    string           `json:"study_title,omitempty" jsonschema:"title of the study"`
	Description   string           `json:"description,omitempty" jsonschema:"free-text description"`
}

// QueryInput is the input schema for the phenotype queries.
type QueryInput struct {
	VariantKey       string   `json:"variant_key" jsonschema:"variant key chromosome:position:reference:alternate"`
	Phenotype        string   `json:"phenotype" jsonschema:"phenotype identifier"`
	InheritanceModes []string `json:"inheritance_modes,omitempty" jsonschema:"restrict to these modes of inheritance"`
}

// SubmissionsInput is the input schema for list_submissions.
type SubmissionsInput struct {
	VariantKey string `json:"variant_key,omitempty" jsonschema:"list submissions for this variant"`
	Submitter  string `json:"submitter,omitempty" jsonschema:"list submissions by this curator or submitter"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of submissions (default 50)"`
	Offset     int    `json:"offset,omitempty" jsonschema:"number of submissions to skip"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "register_variant",
		Description: "Register a variant so curations and evidence can be attached to it",
	}, s.handleRegisterVariant)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_variant",
		Description: "Look up a registered variant by its coordinates",
	}, s.handleFindVariant)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_variant",
		Description: "Fetch a registered variant with all curations and evidence by key",
	}, s.handleGetVariant)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_curation",
		Description: "Classify a variant for a phenotype and optional transcript",
	}, s.handleAddCuration)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_evidence",
		Description: "Attach a pathogenic or benign evidence item to a variant",
	}, s.handleAddEvidence)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_curations",
		Description: "List a variant's curations for a phenotype",
	}, s.handleQueryCurations)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_evidence",
		Description: "List a variant's evidence items for a phenotype",
	}, s.handleQueryEvidence)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reannotate_variant",
		Description: "Refresh the transcripts a variant overlaps",
	}, s.handleReannotate)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_submissions",
		Description: "List recorded submissions for a variant or a submitter, newest first",
	}, s.handleListSubmissions)
}

func (s *Server) handleRegisterVariant(ctx context.Context, _ *mcp.CallToolRequest, input VariantInput) (*mcp.CallToolResult, any, error) {
	agg, err := s.service.CreateVariant(ctx, input.Submitter, input.Chromosome, input.Position, input.Reference, input.Alternate)
	return s.respond("register_variant", agg, err)
}

func (s *Server) handleFindVariant(ctx context.Context, _ *mcp.CallToolRequest, input VariantInput) (*mcp.CallToolResult, any, error) {
	agg, err := s.service.FindVariant(ctx, input.Chromosome, input.Position, input.Reference, input.Alternate)
	return s.respond("find_variant", agg, err)
}

func (s *Server) handleGetVariant(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, any, error) {
	agg, err := s.service.GetVariant(ctx, input.VariantKey)
	return s.respond("get_variant", agg, err)
}

func (s *Server) handleAddCuration(ctx context.Context, _ *mcp.CallToolRequest, input CurationInput) (*mcp.CallToolResult, any, error) {
	agg, err := s.service.AddCuration(ctx, input.VariantKey, service.CurationRequest{
		Curator:              input.Curator,
		Comments:             input.Comments,
		Phenotype:            input.Phenotype,
		InheritanceMode:      domain.InheritanceMode(input.InheritanceMode),
		Transcript:           input.Transcript,
		Classification:       domain.Classification(input.Classification),
		ManualConfidence:     domain.ManualConfidence(input.ManualConfidence),
		ConsistencyStatus:    domain.ConsistencyStatus(input.ConsistencyStatus),
		Penetrance:           input.Penetrance,
		VariableExpressivity: input.VariableExpressivity,
	})
	return s.respond("add_curation", agg, err)
}

func (s *Server) handleAddEvidence(ctx context.Context, _ *mcp.CallToolRequest, input EvidenceInput) (*mcp.CallToolResult, any, error) {
	req := service.EvidenceRequest{
		Submitter:    input.Submitter,
		AlleleOrigin: domain.AlleleOrigin(input.AlleleOrigin),
		Transcript:   input.Transcript,
		Description:  input.Description,
	}
	if input.SourceName != "" || input.SourceType != "" {
		req.Source = &domain.EvidenceSource{
			Name: input.SourceName,
			Type: domain.SourceType(input.SourceType),
			URL:  input.SourceURL,
		}
	}
	for _, p := range input.Phenotypes {
		req.Phenotypes = append(req.Phenotypes, domain.HeritablePhenotype{
			Phenotype:       p.Phenotype,
			InheritanceMode: domain.InheritanceMode(p.InheritanceMode),
		})
	}
	if input.Pathogenicity != "" {
		strength := domain.EvidenceStrength(input.Pathogenicity)
		req.Pathogenicity = &strength
	}
	if input.Benignity != "" {
		strength := domain.EvidenceStrength(input.Benignity)
		req.Benignity = &strength
	}
	if input.PubMedID != "" || input.StudyTitle != "" {
		req.Study = &domain.Study{PubMedID: input.PubMedID, Title: input.StudyTitle}
	}

	agg, err := s.service.AddEvidence(ctx, input.VariantKey, req)
	return s.respond("add_evidence", agg, err)
}

func (s *Server) handleQueryCurations(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, any, error) {
	entries, err := s.service.QueryCurationsByPhenotype(ctx, input.VariantKey, input.Phenotype, modes(input.InheritanceModes)...)
	return s.respond("query_curations", map[string]any{"curations": entries, "count": len(entries)}, err)
}

func (s *Server) handleQueryEvidence(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, any, error) {
	entries, err := s.service.QueryEvidenceByPhenotype(ctx, input.VariantKey, input.Phenotype, modes(input.InheritanceModes)...)
	return s.respond("query_evidence", map[string]any{"evidences": entries, "count": len(entries)}, err)
}

func (s *Server) handleReannotate(ctx context.Context, _ *mcp.CallToolRequest, input KeyInput) (*mcp.CallToolResult, any, error) {
	agg, err := s.service.ReannotateVariant(ctx, input.VariantKey)
	return s.respond("reannotate_variant", agg, err)
}

func (s *Server) handleListSubmissions(ctx context.Context, _ *mcp.CallToolRequest, input SubmissionsInput) (*mcp.CallToolResult, any, error) {
	var (
		submissions []*domain.Submission
		err         error
	)
	switch {
	case input.VariantKey != "":
		submissions, err = s.service.ListSubmissions(ctx, input.VariantKey, input.Limit, input.Offset)
	case input.Submitter != "":
		submissions, err = s.service.ListSubmissionsBySubmitter(ctx, input.Submitter, input.Limit, input.Offset)
	default:
		err = domain.NewValidationError("variant_key", "either variant_key or submitter is required", nil)
	}
	return s.respond("list_submissions", map[string]any{"submissions": submissions}, err)
}

// respond renders a tool result as indented JSON text. Errors are returned to the SDK, which
// reports them to the client as tool errors.
func (s *Server) respond(tool string, value any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"tool":  tool,
			"code":  domain.ErrorCode(err),
			"error": err.Error(),
		}).Warn("Tool call failed")
		return nil, nil, fmt.Errorf("%s: %w", domain.ErrorCode(err), err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func modes(values []string) []domain.InheritanceMode {
	result := make([]domain.InheritanceMode, 0, len(values))
	for _, v := range values {
		result = append(result, domain.InheritanceMode(v))
	}
	return result
}
