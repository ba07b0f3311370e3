package core

// DefaultIcon is used for new categories when no icon has been picked.
const DefaultIcon = "fa-tag"

// MinPasswordLength is enforced locally before any remote call.
const MinPasswordLength = 6

// MaxAvatarBytes bounds avatar uploads.
const MaxAvatarBytes = 5 << 20

var defaultCategories = []Category{
	{ID: "an_uong", Name: "Ăn uống", Icon: "fa-utensils"},
	{ID: "mua_sam", Name: "Mua sắm", Icon: "fa-shopping-cart"},
	{ID: "di_chuyen", Name: "Di chuyển", Icon: "fa-car"},
	{ID: "hoa_don", Name: "Hóa đơn", Icon: "fa-file-invoice"},
	{ID: "giai_tri", Name: "Giải trí", Icon: "fa-gamepad"},
	{ID: "suc_khoe", Name: "Sức khỏe", Icon: "fa-heartbeat"},
	{ID: "hoc_tap", Name: "Học tập", Icon: "fa-graduation-cap"},
	{ID: "khac", Name: "Khác", Icon: "fa-tag"},
}

// DefaultCategories returns a fresh copy of the categories seeded for users
// that have none.
func DefaultCategories() []Category {
	return append([]Category(nil), defaultCategories...)
}

// AvailableIcons lists the icons a category may use.
var AvailableIcons = []string{
	"fa-utensils", "fa-shopping-cart", "fa-car", "fa-home", "fa-wifi",
	"fa-mobile-alt", "fa-gamepad", "fa-film", "fa-music", "fa-book",
	"fa-graduation-cap", "fa-heartbeat", "fa-pills", "fa-dumbbell", "fa-t-shirt",
	"fa-gift", "fa-coffee", "fa-beer", "fa-pizza-slice", "fa-hamburger",
	"fa-plane", "fa-train", "fa-bus", "fa-taxi", "fa-bicycle",
	"fa-child", "fa-baby", "fa-dog", "fa-cat", "fa-paw",
	"fa-tools", "fa-couch", "fa-lightbulb", "fa-money-bill-wave", "fa-credit-card",
	"fa-wallet", "fa-piggy-bank", "fa-chart-line", "fa-briefcase", "fa-laptop",
	"fa-camera", "fa-basketball-ball", "fa-futbol", "fa-swimming-pool", "fa-hiking",
	"fa-phone", "fa-envelope", "fa-tag", "fa-star", "fa-heart",
	"fa-flag", "fa-bell", "fa-calendar", "fa-clock", "fa-map-marker",
	"fa-globe", "fa-user",
}

// IsKnownIcon reports whether icon is one of AvailableIcons.
func IsKnownIcon(icon string) bool {
	for _, i := range AvailableIcons {
		if i == icon {
			return true
		}
	}
	return false
}
