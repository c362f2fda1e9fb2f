package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/process"
	"github.com/leonardotrapani/diarscribe/internal/results"
	"github.com/leonardotrapani/diarscribe/internal/runlock"
)

const uploadField = "audio_files"

type modelOption struct {
	Language     string
	Architecture string
	Name         string
}

type indexPage struct {
	Languages []catalog.Language
	Models    []modelOption
	Default   modelOption
}

func (s *Server) index(c *gin.Context) {
	cfg := s.opts.Config()

	page := indexPage{
		Languages: catalog.Languages,
		Default: modelOption{
			Language:     cfg.Model.Language,
			Architecture: cfg.Model.Architecture,
			Name:         cfg.Model.Name,
		},
	}
	for _, lang := range catalog.Languages {
		for _, arch := range catalog.Architectures {
			for _, name := range catalog.Models(lang, arch) {
				page.Models = append(page.Models, modelOption{string(lang), string(arch), name})
			}
		}
	}
	c.HTML(http.StatusOK, "index.html", page)
}

// upload replaces the contents of the audio directory with the posted files.
func (s *Server) upload(c *gin.Context) {
	if !s.busy.TryLock() {
		respondMessage(c, http.StatusConflict, "processing is in progress")
		return
	}
	defer s.busy.Unlock()

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondMessage(c, http.StatusRequestEntityTooLarge, "upload is too large")
			return
		}
		respondMessage(c, http.StatusBadRequest, "no audio files selected")
		return
	}
	files := form.File[uploadField]
	if len(files) == 0 {
		respondMessage(c, http.StatusBadRequest, "no audio files selected")
		return
	}

	// a CLI batch holds the results lock while it reads the audio directory
	audioStore, resultStore := s.stores()
	lock, err := runlock.Acquire(resultStore.Dir())
	if errors.Is(err, runlock.ErrLocked) {
		respondMessage(c, http.StatusConflict, "another batch is reading the audio directory")
		return
	} else if err != nil {
		respondError(c, err)
		return
	}
	defer lock.Release()

	if err := audioStore.Clear(); err != nil {
		respondError(c, err)
		return
	}

	batchID := uuid.New().String()
	log := s.log.WithFields(logger.Fields("batch_id", batchID, logger.FieldRequestID, c.GetString(ctxRequestID)))

	var saved, skipped []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !audio.IsSupported(name) {
			skipped = append(skipped, fh.Filename)
			continue
		}

		src, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		_, err = audioStore.Save(name, src)
		src.Close()
		if errors.Is(err, results.ErrInvalidName) {
			skipped = append(skipped, fh.Filename)
			continue
		}
		if err != nil {
			respondError(c, err)
			return
		}

		log.Info("file uploaded", logger.Fields(logger.FieldFile, name, "size", fh.Size))
		saved = append(saved, name)
	}

	if len(saved) == 0 {
		c.JSON(http.StatusUnprocessableEntity, response{
			Message: "none of the files has a supported extension (" + strings.Join(audio.Extensions, ", ") + ")",
			Skipped: skipped,
		})
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Files: saved, Skipped: skipped, BatchID: batchID})
}

// process runs one batch over the uploaded files in a child process and
// lists the transcripts it produced.
func (s *Server) process(c *gin.Context) {
	var form processForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, apperr.ConfigInvalid("form", err.Error()))
		return
	}
	_, form.Diarization = c.GetPostForm("diarization")

	spec, err := form.spec()
	if err != nil {
		respondError(c, err)
		return
	}

	if !s.busy.TryLock() {
		respondMessage(c, http.StatusConflict, "processing is in progress")
		return
	}
	defer s.busy.Unlock()

	cfg := s.opts.Config()
	_, resultStore := s.stores()
	if err := s.clearResults(resultStore); errors.Is(err, runlock.ErrLocked) {
		respondMessage(c, http.StatusConflict, "another batch is writing the results directory")
		return
	} else if err != nil {
		respondError(c, err)
		return
	}

	log := s.log.WithFields(logger.Fields(logger.FieldRequestID, c.GetString(ctxRequestID)))
	args := batchArgs(s.opts.ConfigPath, spec, form.Diarization)
	log.Info("starting batch", logger.Fields("args", strings.Join(args, " ")))

	ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Server.ProcessTimeout)
	defer cancel()

	s.hub.reset()
	res, err := s.opts.Run(ctx, process.Command{Binary: s.opts.Executable, Args: args, Progress: s.hub})
	if err != nil {
		log.Error("batch failed", logger.Fields("error", err.Error(), "stderr", res.Tail(20)))
		msg := res.Tail(5)
		if msg == "" {
			msg = err.Error()
		}
		c.JSON(http.StatusBadGateway, response{Message: msg, Code: string(apperr.CodeEngineFailed)})
		return
	}
	log.Info("batch finished", logger.DurationFields("process", res.Duration))

	artifacts, err := resultStore.List()
	if err != nil {
		respondError(c, err)
		return
	}
	if len(artifacts) == 0 {
		respondMessage(c, http.StatusUnprocessableEntity, "no results were produced")
		return
	}

	names := make([]string, len(artifacts))
	for i, a := range artifacts {
		names[i] = a.Name
	}
	respondFiles(c, names)
}

func (s *Server) clearResults(store *results.Store) error {
	lock, err := runlock.Acquire(store.Dir())
	if err != nil {
		return err
	}
	defer lock.Release()
	return store.Clear()
}

func (s *Server) download(c *gin.Context) {
	name := c.Param("filename")
	_, resultStore := s.stores()

	path, err := resultStore.Path(name)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid file name")
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		respondMessage(c, http.StatusNotFound, "file not found")
		return
	}
	c.FileAttachment(path, name)
}
