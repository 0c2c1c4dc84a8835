package controller

// Тексты интерфейса на языке Mini-App.
const (
	errorPrefix = "❌ "

	msgNoUserData = "Не удалось получить данные пользователя"
	msgLoadFailed = "Ошибка при загрузке данных"
	msgBusy       = "⏳ Подождите, предыдущий запрос ещё выполняется"

	progressCreate   = "⏳ Создаю ваш VPN ключ..."
	progressConfig   = "⏳ Загружаю конфигурацию..."
	progressBuyExtra = "⏳ Обрабатываю запрос..."
	progressFreeMode = "⏳ Включаю бесплатный режим..."

	fallbackCreate   = "Ошибка при создании ключа"
	fallbackConfig   = "Ошибка при получении конфигурации"
	fallbackBuyExtra = "Ошибка при покупке"
	fallbackFreeMode = "Ошибка при переключении"

	confirmBuyExtra = "Купить дополнительные 100 ГБ за 99₽?"
	confirmFreeMode = "Включить бесплатный режим (2 Мбит/с) до конца месяца?"

	toastCreated  = "✅ VPN ключ создан успешно!"
	toastBuyExtra = "✅ Дополнительные 100 ГБ добавлены!"
	toastFreeMode = "✅ Бесплатный режим включен!"
	toastCopied   = "📋 Конфигурация скопирована!"

	badgeFreeMode = "🐌 Бесплатный режим (2 Мбит/с)"
	badgeFastMode = "🚀 Быстрый режим"
	labelNoExpiry = "Бессрочно"
)

// Имена действий для логов и метрик.
const (
	ActionCreate   = "create"
	ActionConfig   = "config"
	ActionBuyExtra = "buy_extra"
	ActionFreeMode = "free_mode"
)
