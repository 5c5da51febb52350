package menu

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Подписи кнопок главного меню; по ним же диспетчер маршрутизирует текст.
const (
	BtnRedistribute = "🔄 Переместить остатки"
	BtnRequests     = "📋 Мои заявки"
	BtnStocks       = "📦 Остатки"
	BtnSuppliers    = "🏪 Кабинеты"
	BtnTokens       = "⚙️ Токены"
)

// Main возвращает главное меню бота.
func Main() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnRedistribute),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnRequests),
			tgbotapi.NewKeyboardButton(BtnStocks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSuppliers),
			tgbotapi.NewKeyboardButton(BtnTokens),
		),
	)
}
