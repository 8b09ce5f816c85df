package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/storage"
)

type ContentModule struct {
	Store   db.Store
	Uploads storage.Backend
}

func (m *ContentModule) Mount(c *api.Controller) {
	c.GET("/content", m.list)
	c.POST("/content", m.upload)
	c.GET("/content/:id", m.get)
	c.DELETE("/content/:id", m.delete)
	c.POST("/content/default", m.setDefault)
}

func (m *ContentModule) list(_ *gin.Context, user *model.User) (any, *api.APIError) {
	items, err := m.Store.ListContent(user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list content"}
	}
	return items, nil
}

// upload takes a multipart form with a "file" part and optional "name",
// "duration_ms" and "thumbnail_url" fields.
func (m *ContentModule) upload(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "missing file"}
	}

	url, err := m.Uploads.Save(fileHeader)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "upload failed"}
	}

	name := ctx.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}

	size := fileHeader.Size
	var durationMs *int64
	if raw := ctx.PostForm("duration_ms"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			durationMs = &v
		}
	}
	var thumbnailURL *string
	if raw := ctx.PostForm("thumbnail_url"); raw != "" {
		thumbnailURL = &raw
	}

	item, err := m.Store.CreateContent(name, storage.Kind(fileHeader.Filename), url, &size, durationMs, thumbnailURL, user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save content"}
	}
	return item, nil
}

func (m *ContentModule) get(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	item, err := m.Store.GetContentByID(id)
	if err != nil || item.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "content not found"}
	}
	return item, nil
}

func (m *ContentModule) delete(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := m.Store.DeleteContent(id, user.ID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "content not found"}
	}
	return packets.StatusResponse{Status: "deleted"}, nil
}

// setDefault flips which item fills screens when nothing else is
// scheduled. The store unflags the previous default in the same
// transaction.
func (m *ContentModule) setDefault(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.SetDefaultContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := m.Store.SetDefaultContent(user.ID, req.ContentID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "content not found"}
	}
	return packets.StatusResponse{Status: "default set"}, nil
}
