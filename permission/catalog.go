package permission

// Permission names as issued by the platform backend.
const (
	CreateCampaign  = "CREAR_CAMPANA"
	ViewCampaign    = "VER_CAMPANA"
	EditCampaign    = "EDITAR_CAMPANA"
	DeleteCampaign  = "ELIMINAR_CAMPANA"
	PublishCampaign = "PUBLICAR_CAMPANA"

	CreateScreen  = "CREAR_PANTALLA"
	ViewScreen    = "VER_PANTALLA"
	EditScreen    = "EDITAR_PANTALLA"
	DeleteScreen  = "ELIMINAR_PANTALLA"
	ControlScreen = "CONTROLAR_PANTALLA"

	CreateContent  = "CREAR_CONTENIDO"
	ViewContent    = "VER_CONTENIDO"
	EditContent    = "EDITAR_CONTENIDO"
	DeleteContent  = "ELIMINAR_CONTENIDO"
	ApproveContent = "APROBAR_CONTENIDO"

	ViewReports   = "VER_REPORTES"
	ExportReports = "EXPORTAR_REPORTES"
	ViewCharts    = "VER_GRAFICOS"

	ViewPayments       = "VER_PAGOS"
	ProcessPayment     = "PROCESAR_PAGO"
	ViewPaymentHistory = "VER_HISTORIAL_PAGOS"
	Refund             = "REEMBOLSAR"

	ManageUsers    = "ADMINISTRAR_USUARIOS"
	ManageRoles    = "ADMINISTRAR_ROLES"
	ViewAudit      = "VER_AUDITORIA"
	ManageSettings = "ADMINISTRAR_CONFIGURACION"

	UseAssistant     = "USAR_ASISTENTE_IA"
	UseChat          = "USAR_CHAT"
	CreateAICampaign = "CREAR_CAMPANA_CON_IA"

	ViewMaintenance     = "VER_MANTENIMIENTO"
	ScheduleMaintenance = "PROGRAMAR_MANTENIMIENTO"
)

// Canonical role names.
const (
	RoleAdmin      = "ADMIN"
	RoleTechnician = "TECNICO"
	RoleUser       = "USUARIO"
)

// Catalog lists every known permission in bit-assignment order.
func Catalog() []string {
	return []string{
		CreateCampaign, ViewCampaign, EditCampaign, DeleteCampaign, PublishCampaign,
		CreateScreen, ViewScreen, EditScreen, DeleteScreen, ControlScreen,
		CreateContent, ViewContent, EditContent, DeleteContent, ApproveContent,
		ViewReports, ExportReports, ViewCharts,
		ViewPayments, ProcessPayment, ViewPaymentHistory, Refund,
		ManageUsers, ManageRoles, ViewAudit, ManageSettings,
		UseAssistant, UseChat, CreateAICampaign,
		ViewMaintenance, ScheduleMaintenance,
	}
}

// RoleDef describes one row of the role table.
type RoleDef struct {
	Name          string
	Description   string
	Level         int
	Permissions   []string
	RoutePrefixes []string
}

// DefaultRoles returns the platform role table.
func DefaultRoles() []RoleDef {
	return []RoleDef{
		{
			Name:        RoleAdmin,
			Description: "Full access to every module of the platform",
			Level:       3,
			Permissions: Catalog(),
			RoutePrefixes: []string{
				"/", "/dashboard", "/admin", "/campanas", "/pantallas", "/contenidos",
				"/reportes", "/pagos", "/asistente-ia", "/chat", "/mantenimiento",
			},
		},
		{
			Name:        RoleTechnician,
			Description: "Operates screens and content and runs maintenance",
			Level:       2,
			Permissions: []string{
				ViewCampaign,
				CreateScreen, ViewScreen, EditScreen, DeleteScreen, ControlScreen,
				CreateContent, ViewContent, EditContent, DeleteContent, ApproveContent,
				ViewReports, ViewCharts,
				UseAssistant, UseChat,
				ViewMaintenance, ScheduleMaintenance,
			},
			RoutePrefixes: []string{
				"/dashboard", "/campanas", "/pantallas", "/contenidos",
				"/reportes", "/asistente-ia", "/chat", "/mantenimiento",
			},
		},
		{
			Name:        RoleUser,
			Description: "Runs campaigns and pays for them",
			Level:       1,
			Permissions: []string{
				ViewCampaign,
				CreateContent, ViewContent,
				ViewReports,
				ViewPayments, ProcessPayment, ViewPaymentHistory,
				UseAssistant, UseChat, CreateAICampaign,
			},
			RoutePrefixes: []string{
				"/dashboard", "/campanas", "/contenidos", "/reportes",
				"/pagos", "/asistente-ia", "/chat",
			},
		},
	}
}

// DefaultAliases maps lower-cased role spellings seen on the wire to
// canonical role names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"admin":         RoleAdmin,
		"administrador": RoleAdmin,
		"administrator": RoleAdmin,
		"tecnico":       RoleTechnician,
		"técnico":       RoleTechnician,
		"technician":    RoleTechnician,
		"usuario":       RoleUser,
		"user":          RoleUser,
	}
}
