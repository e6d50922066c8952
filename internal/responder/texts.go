package responder

import "fmt"

// Canned replies. All user facing copy is Rioplatense Spanish.
const (
	MenuText = "👋 ¡Hola! Soy el asistente automático de Seguros.\n\n" +
		"Por favor seleccioná una opción:\n" +
		"1️⃣ Seguro Delivery Moto\n" +
		"2️⃣ Seguro Moto\n" +
		"3️⃣ Hablar con un asesor"

	Option1InfoText = "🚀 Para cotizar tu *Seguro Delivery Moto* necesitamos: marca, modelo y año de la moto, y la zona donde trabajás."
	Option2InfoText = "🏍️ Para cotizar tu *Seguro Moto* necesitamos: marca, modelo y año de la moto, y tu código postal."
	AdvisorText     = "📞 Un asesor se pondrá en contacto con vos en breve. ¡Gracias por confiar en nosotros!"
	FallbackText    = "🤔 No entendí tu respuesta.\nEscribí *menu* para ver las opciones disponibles."
	ApologyText     = "😔 Lo siento, no pude procesar tu mensaje en este momento. Escribí *menu* para ver las opciones."

	DefaultFormURL         = "https://forms.gle/uutX4rXkh1LXqUXe9"
	DefaultSystemPrompt    = "You are a helpful, friendly assistant."
	DefaultMaxOutputTokens = 200
)

// Option1FormText links the delivery motorcycle quote form.
func Option1FormText(formURL string) string {
	return fmt.Sprintf("🚀 Para avanzar con *Seguro Delivery Moto*, completá este formulario:\n%s", formURL)
}

// Option2FormText links the motorcycle quote form.
func Option2FormText(formURL string) string {
	return fmt.Sprintf("🏍️ Para avanzar con *Seguro Moto*, completá este formulario:\n%s", formURL)
}
