package router

// Canned replies. The deterministic bot answers with these; the AI
// fallback generates free text instead.
const (
	// ReplyFloor is the last line of defense: whatever breaks, the
	// customer gets this instead of silence.
	ReplyFloor = "Ocurrió un error. Escribe AYUDA para continuar."

	ReplyAskRegistered = "¡Hola! ¿Eres cliente registrado? (sí/no)"
	ReplyAskPhone      = "Perfecto. Envíame tu número de celular (9 dígitos)."
	ReplyAskPassword   = "Hola %s. Ingresa tu contraseña para continuar."
	ReplyBadPhone      = "Ese número no parece válido. Envíame tu celular de 9 dígitos, por favor."
	ReplyPhoneUnknown  = "No encontré una cuenta con el número %s. Si deseas crear una, escribe \"registrarme\"."
	ReplyWrongPassword = "Contraseña incorrecta. Intenta de nuevo."
	ReplyWelcomeBack   = "¡Bienvenido %s! ¿En qué te ayudo hoy?"

	ReplyAskYesNo = "Responde sí o no, por favor."

	ReplyAskRegName     = "Para registrarte, dime tu nombre completo."
	ReplyBadRegName     = "Necesito tu nombre completo (mínimo 3 letras)."
	ReplyAskRegDNI      = "Gracias, %s. Ahora envíame tu DNI (8 dígitos)."
	ReplyBadRegDNI      = "El DNI debe tener exactamente 8 dígitos. Inténtalo de nuevo."
	ReplyAskRegEmail    = "Perfecto. ¿Cuál es tu correo electrónico?"
	ReplyBadRegEmail    = "Ese correo no parece válido. Envíame uno como nombre@dominio.com."
	ReplyAskRegPassword = "Último paso: elige una contraseña (mínimo 6 caracteres)."
	ReplyBadRegPassword = "La contraseña debe tener al menos 6 caracteres."

	ReplyAskTempName = "No hay problema, puedo atenderte como invitado. ¿Cuál es tu nombre?"
	ReplyAskTempDNI  = "Gracias, %s. Envíame tu DNI (8 dígitos) para emitir tu comprobante."
	ReplyTempDone    = "Listo, %s. Ya puedes cotizar y pedir productos."

	ReplyAskPayment = "¿Cómo deseas pagar? Aceptamos efectivo, tarjeta, transferencia, Yape o Plin."
	ReplyBadPayment = "No reconocí ese método. Elige efectivo, tarjeta, transferencia, Yape o Plin."

	ReplyCancelFlow      = "Listo, volvemos al menú principal. Escribe catálogo o ayuda cuando quieras."
	ReplyAskCancelOrder  = "Tienes un pedido en curso. ¿Seguro que deseas cancelarlo? (sí/no)"
	ReplyNothingToCancel = "No tienes ningún pedido abierto. Escribe catálogo para empezar uno."
	ReplyKeepOrder       = "Perfecto, tu pedido sigue activo."
	ReplyAskAddWhat      = "¿Qué producto deseas agregar a tu pedido?"
	ReplySMSBadCode      = "El código no coincide. Revisa el SMS e inténtalo otra vez."
	ReplySMSExpired      = "El código expiró. Escribe \"recuperar\" para pedir uno nuevo."
	ReplySMSTooMany      = "Demasiados intentos. Volvamos a empezar: escribe \"recuperar\" para un código nuevo."
	ReplyAskUpdate       = "¿Qué dato deseas actualizar?"

	ReplyProductNotFound = "No encontré \"%s\" en el catálogo. ¿Quieres ver el catálogo completo? Escribe catálogo."
	ReplyNeedLogin       = "Para ver tu cuenta primero inicia sesión. Envíame tu celular de 9 dígitos."
	ReplyRecoverAccess   = "Para recuperar tu acceso envíame tu celular de 9 dígitos y verificaremos tu identidad."

	ReplyHelp = "Puedo ayudarte con:\n" +
		"- catálogo: ver productos\n" +
		"- precios y stock: pregunta por cualquier producto\n" +
		"- pedido: estado de tu pedido\n" +
		"- registrarme: crear una cuenta\n" +
		"Escribe cancelar en cualquier momento para volver al inicio."

	ReplyFarewell = "¡Gracias por tu visita! Escríbeme cuando necesites algo más."
	ReplyGeneric  = "No te entendí bien. Escribe ayuda para ver opciones o catálogo para ver productos."
)
