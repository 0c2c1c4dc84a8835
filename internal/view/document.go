// Package view — слой привязки представления: именованные поля Mini-App
// сопоставлены элементам документа. Контроллер пишет в Document, а хост
// (бот, тесты) читает его снимок и отображает как умеет.
package view

import "sync"

// Field — имя элемента представления.
type Field string

// Поля Mini-App.
const (
	Loading       Field = "loading"
	WelcomeScreen Field = "welcome-screen"
	UserScreen    Field = "user-screen"

	BaseGB     Field = "base-gb"
	BaseDays   Field = "base-days"
	BasePrice  Field = "base-price"
	ExtraGB    Field = "extra-gb"
	ExtraPrice Field = "extra-price"
	FreeSpeed  Field = "free-speed"

	UsernameDisplay Field = "username-display"
	StatusIcon      Field = "status-icon"
	StatusText      Field = "status-text"
	ModeBadge       Field = "mode-badge"
	TariffType      Field = "tariff-type"
	UsedGB          Field = "used-gb"
	LimitGB         Field = "limit-gb"
	ProgressFill    Field = "progress-fill"
	ExpireDate      Field = "expire-date"

	ConfigModal  Field = "config-modal"
	ConfigText   Field = "config-text"
	Notification Field = "notification"
)

// Element — состояние одного элемента.
type Element struct {
	Text     string
	Value    string
	Hidden   bool
	Width    string
	Selected bool
}

// Snapshot — копия состояния всех элементов документа.
type Snapshot map[Field]Element

// Text возвращает текст поля.
func (s Snapshot) Text(f Field) string { return s[f].Text }

// Visible сообщает, отображается ли поле.
func (s Snapshot) Visible(f Field) bool {
	el, ok := s[f]
	return ok && !el.Hidden
}

// Document — потокобезопасный набор элементов.
type Document struct {
	mu       sync.RWMutex
	elements map[Field]*Element
}

// NewDocument создаёт документ в начальном состоянии: виден только индикатор
// загрузки, экраны, модальное окно и уведомление скрыты.
func NewDocument() *Document {
	d := &Document{elements: make(map[Field]*Element)}
	for _, f := range []Field{WelcomeScreen, UserScreen, ConfigModal, Notification} {
		d.element(f).Hidden = true
	}
	d.element(Loading)
	return d
}

// element возвращает элемент, создавая его при первом обращении. Вызывать под mu.
func (d *Document) element(f Field) *Element {
	el, ok := d.elements[f]
	if !ok {
		el = &Element{}
		d.elements[f] = el
	}
	return el
}

func (d *Document) update(f Field, fn func(*Element)) {
	d.mu.Lock()
	fn(d.element(f))
	d.mu.Unlock()
}

// SetText задаёт текст поля.
func (d *Document) SetText(f Field, text string) {
	d.update(f, func(el *Element) { el.Text = text })
}

// SetValue задаёт значение поля ввода.
func (d *Document) SetValue(f Field, value string) {
	d.update(f, func(el *Element) { el.Value = value; el.Selected = false })
}

// Show делает поле видимым.
func (d *Document) Show(f Field) {
	d.update(f, func(el *Element) { el.Hidden = false })
}

// Hide скрывает поле.
func (d *Document) Hide(f Field) {
	d.update(f, func(el *Element) { el.Hidden = true })
}

// SetWidth задаёт ширину (например, заполнение прогресс-бара).
func (d *Document) SetWidth(f Field, width string) {
	d.update(f, func(el *Element) { el.Width = width })
}

// Select выделяет содержимое поля ввода.
func (d *Document) Select(f Field) {
	d.update(f, func(el *Element) { el.Selected = true })
}

// Text возвращает текст поля.
func (d *Document) Text(f Field) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[f]; ok {
		return el.Text
	}
	return ""
}

// Value возвращает значение поля ввода.
func (d *Document) Value(f Field) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[f]; ok {
		return el.Value
	}
	return ""
}

// Width возвращает ширину поля.
func (d *Document) Width(f Field) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if el, ok := d.elements[f]; ok {
		return el.Width
	}
	return ""
}

// Selected сообщает, выделено ли содержимое поля.
func (d *Document) Selected(f Field) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[f]
	return ok && el.Selected
}

// Visible сообщает, отображается ли поле. Неизвестные поля считаются скрытыми.
func (d *Document) Visible(f Field) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[f]
	return ok && !el.Hidden
}

// Snapshot возвращает копию текущего состояния.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := make(Snapshot, len(d.elements))
	for f, el := range d.elements {
		snap[f] = *el
	}
	return snap
}
