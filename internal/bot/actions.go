package bot

import "github.com/magabrotheeeer/vpn-miniapp/internal/controller"

var (
	actionCreate    = (*controller.Controller).CreateKey
	actionGetConfig = (*controller.Controller).GetConfig
	actionBuyExtra  = (*controller.Controller).BuyExtra
	actionFreeMode  = (*controller.Controller).EnableFreeMode
	actionRefresh   = (*controller.Controller).CheckStatus
)
