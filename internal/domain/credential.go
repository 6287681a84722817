package domain

// Credential — учётная запись внешнего сервиса.
//
// Создаётся Assignment Stage при первом связывании с прокси
// (insert-if-absent по SecretValue). После создания неизменяема
// и никогда не удаляется ядром.
type Credential struct {
	// ID — идентификатор, назначается хранилищем.
	ID int64 `json:"id"`

	// SecretValue — секрет учётной записи (уникален).
	SecretValue string `json:"secret_value"`
}

// Assignment — привязка прокси к credential.
//
// Один прокси принадлежит не более чем одному credential;
// у credential может быть ноль и более привязок.
// Создаётся Assignment Stage, для Orchestrator'а — read-only.
type Assignment struct {
	// CredentialID — ссылка на credential.
	CredentialID int64 `json:"credential_id"`

	// Proxy — прокси (уникален среди всех привязок).
	Proxy string `json:"proxy"`
}

// Pair — единица работы Orchestrator'а: credential вместе
// с назначенным ему прокси. Результат join'а credentials × assignments.
type Pair struct {
	// CredentialID — идентификатор credential.
	CredentialID int64 `json:"credential_id"`

	// SecretValue — секрет credential (нужен драйверу для login).
	SecretValue string `json:"secret_value"`

	// Proxy — назначенный прокси.
	Proxy string `json:"proxy"`
}
