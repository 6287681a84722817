package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// ServiceConfig — селекторы и адреса одного внешнего сервиса.
//
// Вся специфика web-UI сервиса живёт в этой конфигурации, а не в
// коде: драйвер один, сервисы отличаются данными.
type ServiceConfig struct {
	// Name — имя сервиса (ключ в Registry).
	Name string `json:"name"`

	// LoginURL — страница входа.
	LoginURL string `json:"login_url"`

	// SecretSelector — поле ввода секрета.
	SecretSelector string `json:"secret_selector"`

	// SubmitSelector — кнопка отправки формы.
	SubmitSelector string `json:"submit_selector"`

	// LoggedInSelector — элемент, видимый только после входа.
	LoggedInSelector string `json:"logged_in_selector"`

	// CheckURL — страница с результатом проверки.
	CheckURL string `json:"check_url"`

	// CheckSelector — элемент со значением результата.
	CheckSelector string `json:"check_selector"`
}

// PlaywrightDriver — config-driven драйвер сервиса поверх
// playwright-сессии.
type PlaywrightDriver struct {
	cfg ServiceConfig
}

// NewPlaywrightDriver создаёт драйвер для одного сервиса.
func NewPlaywrightDriver(cfg ServiceConfig) *PlaywrightDriver {
	return &PlaywrightDriver{cfg: cfg}
}

// Service возвращает имя сервиса.
func (d *PlaywrightDriver) Service() string {
	return d.cfg.Name
}

// Login открывает страницу входа, заполняет секрет и ждёт признак
// успешного входа. false — форма отработала, но признак не появился.
func (d *PlaywrightDriver) Login(ctx context.Context, sess Session, secret, proxy string) (bool, error) {
	page, err := pageOf(sess)
	if err != nil {
		return false, err
	}

	if _, err := page.Goto(d.cfg.LoginURL); err != nil {
		return false, fmt.Errorf("open login page: %w", err)
	}
	if err := page.Fill(d.cfg.SecretSelector, secret); err != nil {
		return false, fmt.Errorf("fill secret: %w", err)
	}
	if err := page.Click(d.cfg.SubmitSelector); err != nil {
		return false, fmt.Errorf("submit login: %w", err)
	}

	// Признак входа не появился — это отказ сервиса, не ошибка драйвера.
	if _, err := page.WaitForSelector(d.cfg.LoggedInSelector); err != nil {
		return false, nil
	}
	return true, nil
}

// Check открывает страницу результата и извлекает значение.
// Текст "false" — явный business-отказ.
func (d *PlaywrightDriver) Check(ctx context.Context, sess Session, secret, proxy string) (CheckResult, error) {
	page, err := pageOf(sess)
	if err != nil {
		return CheckResult{}, err
	}

	if _, err := page.Goto(d.cfg.CheckURL); err != nil {
		return CheckResult{}, fmt.Errorf("open check page: %w", err)
	}

	element, err := page.WaitForSelector(d.cfg.CheckSelector)
	if err != nil {
		return CheckResult{}, fmt.Errorf("wait for check value: %w", err)
	}
	raw, err := element.TextContent()
	if err != nil {
		return CheckResult{}, fmt.Errorf("extract check value: %w", err)
	}

	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "false") {
		return CheckResult{OK: false}, nil
	}
	return CheckResult{OK: true, Raw: raw}, nil
}

// pageOf достаёт страницу playwright-сессии.
func pageOf(sess Session) (playwright.Page, error) {
	ps, ok := sess.(*playwrightSession)
	if !ok {
		return nil, ErrWrongSessionType
	}
	return ps.page, nil
}
