package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"product-page-studio/internal/mediagroup"
	"product-page-studio/internal/page"
	"product-page-studio/internal/product"
	"product-page-studio/internal/refimage"
	"product-page-studio/internal/session"
	"product-page-studio/internal/telegram"
	"product-page-studio/internal/workflow"
)

// Messenger is the slice of the Telegram client the handler talks to.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	SendUploading(chatID int64)
	SendPhotoDataURL(chatID int64, dataURL string, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Messenger Messenger
	Sessions  *session.Store
	Messages  workflow.Messages
	Logger    *slog.Logger
}

type Handler struct {
	tg       Messenger
	sessions *session.Store
	messages workflow.Messages
	texts    texts
	logger   *slog.Logger
	albums   *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	messages := opts.Messages
	if messages.Default == "" {
		messages = workflow.MessagesFor("ko")
	}

	return &Handler{
		tg:       opts.Messenger,
		sessions: opts.Sessions,
		messages: messages,
		texts:    textsFor(messages.Lang),
		logger:   logger,
	}
}

// SetAlbumAggregator routes album items through ag; HandleAlbum should be
// its flush callback.
func (h *Handler) SetAlbumAggregator(ag *mediagroup.Aggregator) {
	h.albums = ag
}

// HandleAlbum keeps the first file of an album as the reference image.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) error {
	if len(album.Files) == 0 {
		return nil
	}
	if len(album.Files) > 1 {
		_ = h.tg.SendText(album.ChatID, h.texts.AlbumFirstOnly)
	}
	first := album.Files[0]
	return h.handleImage(ctx, album.ChatID, first.FileID, first.Name, first.MimeType)
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg)
	}

	var file mediagroup.File
	switch {
	case len(msg.Photo) > 0:
		file = mediagroup.File{FileID: msg.Photo[len(msg.Photo)-1].FileID, Name: "photo.jpg"}
	case msg.Document != nil:
		file = mediagroup.File{FileID: msg.Document.FileID, Name: msg.Document.FileName, MimeType: msg.Document.MimeType}
	}

	switch {
	case file.FileID != "" && msg.MediaGroupID != "" && h.albums != nil:
		h.albums.Add(mediagroup.Item{ChatID: chatID, AlbumID: msg.MediaGroupID, File: file})
		return nil
	case file.FileID != "":
		return h.handleImage(ctx, chatID, file.FileID, file.Name, file.MimeType)
	case strings.TrimSpace(msg.Text) != "":
		return h.tg.SendText(chatID, h.texts.SendPhoto)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID, h.texts.Start)
	case "help":
		return h.tg.SendText(chatID, h.texts.Help)
	case "reset":
		if ctrl, ok := h.sessions.Lookup(chatKey(chatID)); ok {
			ctrl.Reset()
		}
		return h.tg.SendText(chatID, h.texts.ResetDone)
	case "generate":
		return h.generate(ctx, chatID)
	default:
		return h.tg.SendText(chatID, h.texts.Unknown)
	}
}

func (h *Handler) handleImage(ctx context.Context, chatID int64, fileID, name, mimeType string) error {
	h.tg.SendTyping(chatID)
	ctrl := h.sessions.Get(chatKey(chatID))

	raw, detected, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("telegram download failed", "chat", chatID, "err", err)
		if !errors.Is(err, refimage.ErrTooLarge) {
			err = fmt.Errorf("%w: %w", refimage.ErrUnreadable, err)
		}
		ctrl.RejectImage(err)
		return h.tg.SendText(chatID, h.messages.For(err))
	}
	if mimeType == "" {
		mimeType = detected
	}

	if err := ctrl.SelectImage(ctx, bytes.NewReader(raw), name, mimeType); err != nil {
		h.logger.Info("reference rejected", "chat", chatID, "err", err)
		return h.tg.SendText(chatID, h.messages.For(err))
	}
	return h.tg.SendText(chatID, h.texts.ImageReceived)
}

func (h *Handler) generate(ctx context.Context, chatID int64) error {
	ctrl := h.sessions.Get(chatKey(chatID))

	h.tg.SendTyping(chatID)
	done, err := ctrl.Start(ctx)
	switch {
	case errors.Is(err, workflow.ErrNoReference):
		return h.tg.SendText(chatID, h.texts.SendPhoto)
	case errors.Is(err, workflow.ErrInProgress):
		return h.tg.SendText(chatID, h.texts.Busy)
	case err != nil:
		return err
	}

	_ = h.tg.SendText(chatID, h.messages.AnalyzingTitle+"\n"+h.messages.ProgressHint)

	if err := <-done; err != nil {
		if errors.Is(err, workflow.ErrSuperseded) {
			return nil
		}
		h.logger.Warn("generation failed", "chat", chatID, "err", err)
		msg := ctrl.Snapshot().Error
		if msg == "" {
			msg = h.messages.For(err)
		}
		return h.tg.SendText(chatID, msg)
	}

	snap := ctrl.Snapshot()
	if !snap.Ready() {
		return nil
	}
	return h.sendResult(chatID, *snap.Product)
}

func (h *Handler) sendResult(chatID int64, d product.Detail) error {
	h.tg.SendUploading(chatID)
	if err := h.tg.SendPhotoDataURL(chatID, d.GeneratedImageURL, d.ProductName); err != nil {
		return err
	}
	if err := h.tg.SendPhotoDataURL(chatID, d.LifestyleImageURL, d.Tagline); err != nil {
		return err
	}
	if err := h.tg.SendText(chatID, summary(d)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := page.RenderLanding(&buf, d, h.messages.Lang); err != nil {
		return fmt.Errorf("render landing: %w", err)
	}
	return h.tg.SendDocument(chatID, "landing.html", buf.Bytes(), h.texts.LandingCaption)
}

func summary(d product.Detail) string {
	var b strings.Builder
	b.WriteString(d.ProductName)
	if d.Tagline != "" {
		b.WriteString("\n")
		b.WriteString(d.Tagline)
	}
	if d.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Description)
	}
	if len(d.KeyBenefits) > 0 {
		b.WriteString("\n")
		for _, benefit := range d.KeyBenefits {
			fmt.Fprintf(&b, "\n• %s: %s", benefit.Title, benefit.Description)
		}
	}
	if len(d.Specifications) > 0 {
		b.WriteString("\n")
		for _, s := range d.Specifications {
			fmt.Fprintf(&b, "\n- %s: %s", s.Label, s.Value)
		}
	}
	if d.MarketingCopy != "" {
		b.WriteString("\n\n")
		b.WriteString(d.MarketingCopy)
	}
	return b.String()
}

func chatKey(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}
