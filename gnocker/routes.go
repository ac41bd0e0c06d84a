package gnocker

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber"
	"github.com/gofiber/utils"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/gnockcycle/datasource"
	"github.com/zerbitx/gnockcycle/dispatch"
	"github.com/zerbitx/gnockcycle/encode"
	"github.com/zerbitx/gnockcycle/persist"
	"github.com/zerbitx/gnockcycle/spec"
)

// UploadField is the multipart field data sources are uploaded in
const UploadField = "csvFile"

type removeRequest struct {
	Key string `json:"key"`
}

func (g *Gnocker) routes(app *fiber.App) {
	base := g.adminBasePath

	g.logger.
		WithFields(logrus.Fields{
			http.MethodGet:    base + "/health, " + base + "/list",
			http.MethodPost:   base + "/add, " + base + "/upload-csv",
			http.MethodDelete: base + "/remove",
		}).Debug("admin endpoints")

	app.Get(base+"/health", g.health)
	app.Get(base+"/list", g.list)
	app.Post(base+"/add", g.add)
	app.Delete(base+"/remove", g.remove)
	app.Post(base+"/upload-csv", g.upload)

	app.Use(g.serve)

	if g.staticDir != "" {
		if info, err := os.Stat(g.staticDir); err == nil && info.IsDir() {
			app.Static("/", g.staticDir)
		}
	}
}

func (g *Gnocker) isAdminPath(path string) bool {
	return path == g.adminBasePath || strings.HasPrefix(path, g.adminBasePath+"/")
}

// isStaticFile reports whether path names a regular file under the static dir. Assets win over mocks.
func (g *Gnocker) isStaticFile(path string) bool {
	if g.staticDir == "" {
		return false
	}

	info, err := os.Stat(filepath.Join(g.staticDir, filepath.FromSlash(filepath.Clean("/"+path))))

	return err == nil && !info.IsDir()
}

func (g *Gnocker) serve(c *fiber.Ctx) {
	// held across the delay, don't alias fasthttp's buffers
	method := utils.ImmutableString(c.Method())
	path := utils.ImmutableString(c.Path())

	if path == "/" || g.isAdminPath(path) || g.isStaticFile(path) {
		c.Next()
		return
	}

	res, err := g.dispatcher.Dispatch(g.ctx, dispatch.Request{
		Method: method,
		Path:   path,
		Body:   []byte(c.Body()),
	})

	switch {
	case errors.Is(err, dispatch.ErrNotRegistered):
		g.logger.WithFields(logrus.Fields{"method": method, "path": path}).Debug("no mock")
		g.respond(c, http.StatusNotFound, fiber.Map{"error": "Not Found"})
	case err != nil:
		g.respond(c, http.StatusServiceUnavailable, fiber.Map{"error": err.Error()})
	default:
		g.respond(c, res.Status, res.Body)
	}
}

func (g *Gnocker) health(c *fiber.Ctx) {
	g.respond(c, http.StatusOK, fiber.Map{
		"status":    "OK",
		"message":   "Mock Controller is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *Gnocker) list(c *fiber.Ctx) {
	mocks := g.store.List()
	views := make([]spec.View, 0, len(mocks))
	for _, m := range mocks {
		views = append(views, m.View())
	}

	c.Set("Content-Type", "application/json")
	if err := encode.JSONIndented(views, c.Fasthttp.Response.BodyWriter()); err != nil {
		g.logger.WithError(err).Error("Failed to encode response")
		c.SendStatus(http.StatusInternalServerError)
	}
}

func (g *Gnocker) add(c *fiber.Ctx) {
	rec, err := decodeRecord(c)
	if err != nil {
		g.logger.WithError(err).Error("failed to decode mock")
		g.respond(c, http.StatusBadRequest, fiber.Map{"error": err.Error()})
		return
	}

	mock, err := g.Register(rec)

	var (
		ve   *spec.ValidationError
		pErr *persist.Error
	)
	switch {
	case errors.As(err, &ve):
		g.respond(c, http.StatusBadRequest, fiber.Map{"error": ve.Error(), "problems": ve.Problems})
	case errors.As(err, &pErr):
		g.logger.WithError(err).Error("failed to persist mocks")
		g.respond(c, http.StatusInternalServerError, fiber.Map{"error": pErr.Error(), "key": mock.Key()})
	case err != nil:
		g.respond(c, http.StatusInternalServerError, fiber.Map{"error": err.Error()})
	default:
		g.respond(c, http.StatusCreated, fiber.Map{"message": "Success", "key": mock.Key(), "id": mock.ID})
	}
}

func decodeRecord(c *fiber.Ctx) (spec.Record, error) {
	body := []byte(c.Body())

	if strings.Contains(c.Get("Content-Type"), "yaml") {
		return spec.UnmarshalYAMLRecord(body)
	}

	var rec spec.Record
	err := json.Unmarshal(body, &rec)

	return rec, err
}

func (g *Gnocker) remove(c *fiber.Ctx) {
	var req removeRequest
	if err := json.Unmarshal([]byte(c.Body()), &req); err != nil || req.Key == "" {
		g.respond(c, http.StatusBadRequest, fiber.Map{"error": "key is required"})
		return
	}

	if err := g.Remove(req.Key); err != nil {
		g.logger.WithError(err).Error("failed to persist mocks")
		g.respond(c, http.StatusInternalServerError, fiber.Map{"error": err.Error()})
		return
	}

	g.respond(c, http.StatusOK, fiber.Map{"message": "Deleted"})
}

func (g *Gnocker) upload(c *fiber.Ctx) {
	fh, err := c.FormFile(UploadField)
	if err != nil {
		g.respond(c, http.StatusBadRequest, fiber.Map{"error": "No file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		g.respond(c, http.StatusInternalServerError, fiber.Map{"error": err.Error()})
		return
	}
	defer f.Close()

	ref, err := g.loader.Store(fh.Filename, f)

	var dsErr *datasource.Error
	switch {
	case errors.As(err, &dsErr):
		g.respond(c, http.StatusBadRequest, fiber.Map{"error": dsErr.Error()})
	case err != nil:
		g.logger.WithError(err).Error("failed to store upload")
		g.respond(c, http.StatusInternalServerError, fiber.Map{"error": err.Error()})
	default:
		g.logger.WithField("path", ref).Info("data source uploaded")
		g.respond(c, http.StatusOK, fiber.Map{"path": ref})
	}
}

func (g *Gnocker) respond(c *fiber.Ctx, status int, body interface{}) {
	c.Status(status)

	if err := c.JSON(body); err != nil {
		g.logger.WithError(err).Error("Failed to encode response")
		c.SendStatus(http.StatusInternalServerError)
	}
}
