package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/service"
)

type createVariantRequest struct {
	Submitter  string `json:"submitter"`
	Chromosome string `json:"chromosome"`
	Position   int64  `json:"position"`
	Reference  string `json:"reference"`
	Alternate  string `json:"alternate"`
}

func (s *Server) handleCreateVariant(c *gin.Context) {
	var req createVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeInvalidInput(c, "body", err.Error())
		return
	}

	agg, err := s.service.CreateVariant(c.Request.Context(), req.Submitter, req.Chromosome, req.Position, req.Reference, req.Alternate)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, agg)
}

func (s *Server) handleFindVariant(c *gin.Context) {
	position, err := strconv.ParseInt(c.Query("position"), 10, 64)
	if err != nil {
		s.writeInvalidInput(c, "position", "position must be an integer")
		return
	}

	agg, err := s.service.FindVariant(c.Request.Context(), c.Query("chromosome"), position, c.Query("reference"), c.Query("alternate"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) handleGetVariant(c *gin.Context) {
	agg, err := s.service.GetVariant(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) handleAddCuration(c *gin.Context) {
	var req service.CurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeInvalidInput(c, "body", err.Error())
		return
	}

	agg, err := s.service.AddCuration(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) handleAddEvidence(c *gin.Context) {
	var req service.EvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeInvalidInput(c, "body", err.Error())
		return
	}

	agg, err := s.service.AddEvidence(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) handleQueryCurations(c *gin.Context) {
	entries, err := s.service.QueryCurationsByPhenotype(c.Request.Context(), c.Param("key"), c.Query("phenotype"), modes(c)...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"curations": entries, "count": len(entries)})
}

func (s *Server) handleQueryEvidence(c *gin.Context) {
	entries, err := s.service.QueryEvidenceByPhenotype(c.Request.Context(), c.Param("key"), c.Query("phenotype"), modes(c)...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evidences": entries, "count": len(entries)})
}

func (s *Server) handleReannotate(c *gin.Context) {
	agg, err := s.service.ReannotateVariant(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) handleListSubmissions(c *gin.Context) {
	limit, offset, ok := s.pagination(c)
	if !ok {
		return
	}

	submissions, err := s.service.ListSubmissions(c.Request.Context(), c.Param("key"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions, "limit": limit, "offset": offset})
}

func (s *Server) handleListSubmitterSubmissions(c *gin.Context) {
	limit, offset, ok := s.pagination(c)
	if !ok {
		return
	}

	submissions, err := s.service.ListSubmissionsBySubmitter(c.Request.Context(), c.Param("submitter"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions, "limit": limit, "offset": offset})
}

// modes reads the repeated moi query parameter.
func modes(c *gin.Context) []domain.InheritanceMode {
	values := c.QueryArray("moi")
	result := make([]domain.InheritanceMode, 0, len(values))
	for _, v := range values {
		result = append(result, domain.InheritanceMode(v))
	}
	return result
}

func (s *Server) pagination(c *gin.Context) (int, int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		s.writeInvalidInput(c, "limit", "limit must be an integer")
		return 0, 0, false
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		s.writeInvalidInput(c, "offset", "offset must be an integer")
		return 0, 0, false
	}
	return limit, offset, true
}
