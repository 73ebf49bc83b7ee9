package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/persistence"
	"github.com/cppla/threadsense/utils"
)

// BatchWriter persists posts and their comments.
type BatchWriter interface {
	Write(ctx context.Context, posts []models.Post) persistence.WriteReport
}

// DBController accepts already scored batches, e.g. from the scoring service.
type DBController struct {
	writer BatchWriter
}

func NewDBController(writer BatchWriter) *DBController {
	return &DBController{writer: writer}
}

type saveDataRequest struct {
	Success bool          `json:"success"`
	Data    []models.Post `json:"data"`
}

// SaveData writes a {success, data} payload. Per-record failures are reported,
// not returned as an error status.
func (d *DBController) SaveData(ctx *gin.Context) {
	var req saveDataRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, CodeBadPayload, "invalid payload: "+err.Error())
		return
	}
	if !req.Success {
		utils.Error(ctx, http.StatusBadRequest, CodeBadPayload, "payload is marked unsuccessful")
		return
	}
	if len(req.Data) == 0 {
		utils.Error(ctx, http.StatusBadRequest, CodeInvalidInput, "data must contain at least one post")
		return
	}
	for i := range req.Data {
		p := &req.Data[i]
		if p.ID == "" {
			utils.Error(ctx, http.StatusBadRequest, CodeInvalidInput, "every post needs an id")
			return
		}
		for j := range p.Comments {
			if p.Comments[j].ID == "" {
				utils.Error(ctx, http.StatusBadRequest, CodeInvalidInput, "every comment needs an id")
				return
			}
			p.Comments[j].PostID = p.ID
		}
	}

	report := d.writer.Write(ctx.Request.Context(), req.Data)
	utils.Success(ctx, report)
}
