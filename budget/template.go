package budget

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TEMPLATE - Nested starting chart for a new project
// =============================================================================

// TemplateItem is one entry of a budget template. Items with children are
// usually GROUPs.
type TemplateItem struct {
	Name     string          `json:"name"`
	Kind     Kind            `json:"type"`
	Unit     string          `json:"unit,omitempty"`
	Rate     decimal.Decimal `json:"rate"`
	Quantity decimal.Decimal `json:"quantity"`
	Children []TemplateItem  `json:"children,omitempty"`
}

// Count returns the number of lines the items expand to.
func Count(items []TemplateItem) int {
	n := 0
	for _, it := range items {
		n += 1 + Count(it.Children)
	}
	return n
}

// NewLineID returns a fresh random line id.
func NewLineID() LineID { return LineID(uuid.NewString()) }

// TemplateToLines flattens a template depth-first. Codes are positional
// ("1", "1.2", "1.2.3"), sort orders restart at 0 under every parent and
// levels follow the nesting. newID may be nil to use NewLineID.
func TemplateToLines(projectID ProjectID, items []TemplateItem, newID func() LineID) []Line {
	if newID == nil {
		newID = NewLineID
	}
	out := make([]Line, 0, Count(items))
	var flatten func(items []TemplateItem, parent LineID, parentCode string, level int)
	flatten = func(items []TemplateItem, parent LineID, parentCode string, level int) {
		for i, it := range items {
			code := strconv.Itoa(i + 1)
			if parentCode != "" {
				code = parentCode + "." + code
			}
			kind := it.Kind
			if kind == "" {
				kind = KindItem
			}
			l := Line{
				ID:        newID(),
				ProjectID: projectID,
				ParentID:  parent,
				SortOrder: i,
				Level:     level,
				Code:      code,
				Name:      it.Name,
				Kind:      kind,
				Unit:      it.Unit,
				Rate:      it.Rate,
				Quantity:  it.Quantity,
			}
			out = append(out, l)
			flatten(it.Children, l.ID, code, level+1)
		}
	}
	flatten(items, "", "", 0)
	return out
}

func group(name string, children ...TemplateItem) TemplateItem {
	return TemplateItem{Name: name, Kind: KindGroup, Children: children}
}

func item(name, unit string) TemplateItem {
	return TemplateItem{Name: name, Kind: KindItem, Unit: unit, Quantity: decimal.NewFromInt(1)}
}

// DefaultTemplate returns the standard film production chart.
// Every item starts at rate 0, quantity 1.
func DefaultTemplate() []TemplateItem {
	return []TemplateItem{
		group("СЦЕНАРИЙ И РЕЖИССУРА",
			group("Сценарий",
				item("Автор сценария", "пак."),
				item("Литературный редактор", "пак."),
				item("Покупка прав на экранизацию", "шт."),
			),
			group("Режиссура",
				item("Режиссёр-постановщик", "пак."),
				item("Второй режиссёр", "смена"),
				item("Ассистент режиссёра", "смена"),
			),
		),
		group("ПРОДЮСЕРСКАЯ ГРУППА",
			group("Продюсеры",
				item("Продюсер", "пак."),
				item("Линейный продюсер", "пак."),
				item("Директор картины", "смена"),
			),
			group("Администрация",
				item("Администратор", "смена"),
				item("Бухгалтер", "месяц"),
			),
		),
		group("ОПЕРАТОРСКАЯ ГРУППА",
			group("Операторы",
				item("Оператор-постановщик", "смена"),
				item("Фокус-пуллер", "смена"),
			),
			group("Спецтехника операторская",
				item("Кран", "смена"),
				item("Стедикам", "смена"),
			),
		),
		group("ОСВЕТИТЕЛЬНАЯ ГРУППА",
			group("Осветители",
				item("Бригадир осветителей", "смена"),
				item("Осветитель", "смена"),
			),
			group("Осветительное оборудование",
				item("Аренда света", "смена"),
				item("Генератор", "смена"),
			),
		),
		group("ЗВУКОЗАПИСЬ",
			group("Звуковая группа",
				item("Звукорежиссёр", "смена"),
				item("Бум-оператор", "смена"),
			),
		),
		group("ХУДОЖЕСТВЕННАЯ ГРУППА",
			group("Художники",
				item("Художник-постановщик", "пак."),
				item("Реквизитор", "смена"),
			),
			group("Строительство декораций",
				item("Материалы", "шт."),
				item("Строители", "смена"),
			),
		),
		group("КОСТЮМЫ И ГРИМ",
			group("Костюмерная группа",
				item("Художник по костюмам", "пак."),
				item("Костюмер", "смена"),
			),
			group("Гримёрная группа",
				item("Художник по гриму", "пак."),
				item("Гримёр", "смена"),
			),
		),
		group("АКТЁРЫ",
			group("Главные роли",
				item("Главная роль", "смена"),
			),
			group("Второй план",
				item("Роль второго плана", "смена"),
			),
			group("Массовка",
				item("Массовка", "чел./смена"),
			),
		),
		group("КАСКАДЁРЫ И СПЕЦЭФФЕКТЫ",
			group("Каскадёры",
				item("Постановщик трюков", "смена"),
				item("Каскадёр", "смена"),
			),
			group("Спецэффекты на площадке",
				item("Пиротехник", "смена"),
			),
		),
		group("ТРАНСПОРТ",
			group("Транспортная группа",
				item("Водитель", "смена"),
			),
			group("Аренда транспорта",
				item("Автобус", "смена"),
				item("Грузовик", "смена"),
			),
		),
		group("ЛОКАЦИИ",
			group("Аренда локаций",
				item("Аренда объекта", "смена"),
			),
			group("Подготовка локации",
				item("Уборка", "шт."),
			),
		),
		group("ПИТАНИЕ И ПРОЖИВАНИЕ",
			group("Питание",
				item("Кейтеринг", "чел./смена"),
			),
			group("Проживание",
				item("Гостиница", "номер/ночь"),
			),
		),
		group("ТЕХНИКА И ОБОРУДОВАНИЕ",
			group("Камеры",
				item("Камерный комплект", "смена"),
			),
			group("Прочая техника",
				item("Рации", "смена"),
			),
		),
		group("ПОСТПРОДАКШН",
			group("Монтаж",
				item("Режиссёр монтажа", "пак."),
			),
			group("Цветокоррекция и VFX",
				item("Колорист", "смена"),
				item("VFX", "пак."),
			),
			group("Звук пост",
				item("Сведение", "пак."),
			),
		),
		group("СТРАХОВАНИЕ И ЮРИДИЧЕСКИЕ РАСХОДЫ",
			group("Страхование",
				item("Страхование съёмочной группы", "пак."),
			),
			group("Юридические расходы",
				item("Юридическое сопровождение", "месяц"),
			),
		),
		group("НЕПРЕДВИДЕННЫЕ РАСХОДЫ",
			group("Резерв",
				item("Резерв", "пак."),
			),
		),
	}
}
