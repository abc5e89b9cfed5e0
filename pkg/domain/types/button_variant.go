package types

// ButtonVariant is the visual style hint of an action button
type ButtonVariant string

const (
	ButtonVariantDefault     ButtonVariant = "default"
	ButtonVariantOutline     ButtonVariant = "outline"
	ButtonVariantDestructive ButtonVariant = "destructive"
)

// IsValid checks if the variant is one of the known variants
func (v ButtonVariant) IsValid() bool {
	switch v {
	case ButtonVariantDefault, ButtonVariantOutline, ButtonVariantDestructive:
		return true
	default:
		return false
	}
}

// Normalize maps unknown or empty variants to ButtonVariantDefault
func (v ButtonVariant) Normalize() ButtonVariant {
	if !v.IsValid() {
		return ButtonVariantDefault
	}
	return v
}

func (v ButtonVariant) String() string {
	return string(v)
}
