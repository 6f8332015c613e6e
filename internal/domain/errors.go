package domain

import "errors"

var (
	// ErrCommandNotFound は指定されたコマンドが登録されていない場合のエラー。
	ErrCommandNotFound = errors.New("command not found")

	// ErrDuplicateCommand は同名のコマンドが既に登録されている場合のエラー。
	ErrDuplicateCommand = errors.New("command already registered")

	// ErrInvalidArgs はコマンド引数が不正な場合のエラー。
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrPluginSetup はプラグインの初期化に失敗した場合のエラー。
	ErrPluginSetup = errors.New("plugin setup failed")

	// ErrAlreadyRunning はアプリケーションが既に起動済みの場合のエラー。
	ErrAlreadyRunning = errors.New("application already started")

	// ErrConversationNotFound は指定された会話が存在しない場合のエラー。
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrDatabaseNotLoaded は指定されたデータベースがロードされていない場合のエラー。
	ErrDatabaseNotLoaded = errors.New("database not loaded")

	// ErrUnsupportedDatabaseURL はデータベースURLのスキームが未対応の場合のエラー。
	ErrUnsupportedDatabaseURL = errors.New("unsupported database url")

	// ErrPathOutsideScope はパスが許可されたスコープ外を指す場合のエラー。
	ErrPathOutsideScope = errors.New("path is outside of the allowed scope")

	// ErrShellCommandNotAllowed は許可されていないシェルコマンドの場合のエラー。
	ErrShellCommandNotAllowed = errors.New("shell command not allowed")

	// ErrChildNotFound は指定された子プロセスが存在しない場合のエラー。
	ErrChildNotFound = errors.New("child process not found")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrDuplicateMigrationVersion はマイグレーションのバージョンが重複している場合のエラー。
	ErrDuplicateMigrationVersion = errors.New("duplicate migration version")

	// ErrMigrationOrder はマイグレーションのバージョンが昇順でない場合のエラー。
	ErrMigrationOrder = errors.New("migration versions are not increasing")

	// ErrMigrationModified は適用済みマイグレーションのSQLが変更された場合のエラー。
	ErrMigrationModified = errors.New("applied migration has been modified")

	// ErrMigrationDirty は前回のマイグレーションが失敗したまま残っている場合のエラー。
	ErrMigrationDirty = errors.New("migration is partially applied")
)
