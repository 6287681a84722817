package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightFactory — Factory поверх Chromium через playwright.
//
// Каждая сессия — persistent context на собственном каталоге профиля
// с собственным прокси. Расширения подключаются через launch-аргументы,
// только если preflight-проверка при старте их подтвердила.
type PlaywrightFactory struct {
	mu         sync.Mutex
	pw         *playwright.Playwright
	headless   bool
	extensions ExtensionCheck
}

// PlaywrightConfig — конфигурация PlaywrightFactory.
type PlaywrightConfig struct {
	// Headless — запускать браузер без UI.
	Headless bool

	// Extensions — результат Preflight, передаётся по значению.
	Extensions ExtensionCheck
}

// NewPlaywrightFactory поднимает playwright-драйвер.
func NewPlaywrightFactory(cfg PlaywrightConfig) (*PlaywrightFactory, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	return &PlaywrightFactory{
		pw:         pw,
		headless:   cfg.Headless,
		extensions: cfg.Extensions,
	}, nil
}

// playwrightSession — сессия PlaywrightFactory.
type playwrightSession struct {
	profileDir string
	browserCtx playwright.BrowserContext
	page       playwright.Page
}

// ProfileDir возвращает каталог профиля сессии.
func (s *playwrightSession) ProfileDir() string {
	return s.profileDir
}

// Page возвращает активную страницу сессии.
// Используется драйверами сервисов.
func (s *playwrightSession) Page() playwright.Page {
	return s.page
}

// New открывает persistent context на каталоге профиля через прокси.
func (f *PlaywrightFactory) New(ctx context.Context, profileDir, proxy string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pw == nil {
		return nil, ErrFactoryNotReady
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(f.headless),
	}
	if proxy != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: proxy}
	}
	if f.extensions.Valid && len(f.extensions.Dirs) > 0 {
		joined := strings.Join(f.extensions.Dirs, ",")
		launchOpts.Args = []string{
			"--disable-extensions-except=" + joined,
			"--load-extension=" + joined,
		}
	}

	browserCtx, err := f.pw.Chromium.LaunchPersistentContext(profileDir, launchOpts)
	if err != nil {
		return nil, fmt.Errorf("launch persistent context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &playwrightSession{
		profileDir: profileDir,
		browserCtx: browserCtx,
		page:       page,
	}, nil
}

// Reset возвращает сессию к чистой вкладке (about:blank).
func (f *PlaywrightFactory) Reset(ctx context.Context, sess Session) error {
	ps, ok := sess.(*playwrightSession)
	if !ok {
		return ErrWrongSessionType
	}

	if _, err := ps.page.Goto("about:blank"); err != nil {
		return fmt.Errorf("reset to blank tab: %w", err)
	}
	return nil
}

// Close закрывает браузерный контекст сессии.
func (f *PlaywrightFactory) Close(sess Session) error {
	ps, ok := sess.(*playwrightSession)
	if !ok {
		return ErrWrongSessionType
	}
	return ps.browserCtx.Close()
}

// Stop останавливает playwright-драйвер целиком.
func (f *PlaywrightFactory) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pw == nil {
		return nil
	}
	err := f.pw.Stop()
	f.pw = nil
	return err
}
